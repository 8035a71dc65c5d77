package capture

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Capability is a device feature guarded by a permission
type Capability string

const (
	CameraAccess       Capability = "camera"
	LocationAccess     Capability = "location"
	MediaLibraryAccess Capability = "media_library"
)

// Capabilities lists every capability requested at activation
var Capabilities = []Capability{CameraAccess, LocationAccess, MediaLibraryAccess}

// Status is the answer to a permission request
type Status string

const (
	Undetermined Status = ""
	Granted      Status = "granted"
	Denied       Status = "denied"
)

// ParseStatus parses "granted" or "denied" (case-insensitive)
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "granted", "grant", "yes", "true":
		return Granted, nil
	case "denied", "deny", "no", "false":
		return Denied, nil
	}
	return Undetermined, fmt.Errorf("invalid permission status %q (expected granted or denied)", s)
}

// Prompter asks whoever owns the device for a permission
type Prompter interface {
	Request(ctx context.Context, c Capability) (Status, error)
}

// PrompterFunc adapts a function to Prompter
type PrompterFunc func(ctx context.Context, c Capability) (Status, error)

func (f PrompterFunc) Request(ctx context.Context, c Capability) (Status, error) {
	return f(ctx, c)
}

// StaticPrompter answers from a fixed table. Capabilities missing from the
// table are denied.
type StaticPrompter map[Capability]Status

func (p StaticPrompter) Request(ctx context.Context, c Capability) (Status, error) {
	if s, ok := p[c]; ok && s == Granted {
		return Granted, nil
	}
	return Denied, nil
}

// GrantAll is a Prompter that grants everything
var GrantAll Prompter = PrompterFunc(func(ctx context.Context, c Capability) (Status, error) {
	return Granted, nil
})

// Permissions caches permission answers. Denied capabilities are asked again
// whenever Ensure is called for them.
type Permissions struct {
	prompter Prompter

	mu     sync.Mutex
	status map[Capability]Status
}

// NewPermissions creates a Permissions that asks prompter
func NewPermissions(prompter Prompter) *Permissions {
	return &Permissions{
		prompter: prompter,
		status:   make(map[Capability]Status),
	}
}

// RequestAll asks for every capability once. Used when a capture surface starts.
func (p *Permissions) RequestAll(ctx context.Context) map[Capability]Status {
	result := make(map[Capability]Status, len(Capabilities))
	for _, c := range Capabilities {
		granted := p.Ensure(ctx, c)
		if granted {
			result[c] = Granted
		} else {
			result[c] = Denied
		}
	}
	return result
}

// Status returns the cached answer for c
func (p *Permissions) Status(c Capability) Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status[c]
}

// Ensure reports whether c is granted, prompting if it was not granted before
func (p *Permissions) Ensure(ctx context.Context, c Capability) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status[c] == Granted {
		return true
	}

	status, err := p.prompter.Request(ctx, c)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("capability", string(c)).Msg("permission request failed")
		status = Denied
	}
	if status != Granted {
		status = Denied
	}
	p.status[c] = status
	log.Ctx(ctx).Debug().Str("capability", string(c)).Str("status", string(status)).Msg("permission requested")
	return status == Granted
}
