package providers

import (
	"sort"

	"github.com/jrsteele09/go-credential-broker/internal/errors"
)

// GoTo API surface base URLs and OAuth endpoints.
const (
	gotoAuthorizeURL = "https://authentication.logmeininc.com/oauth/authorize"
	gotoTokenURL     = "https://identity.goto.com/oauth/token"
	gotoIssuerURL    = "https://identity.goto.com"

	gotoAdminBaseURL = "https://api.getgo.com/admin/rest/v1"
	gotoVoiceBaseURL = "https://api.jive.com/voice-admin/v1"
	gotoScimBaseURL  = "https://api.getgo.com/identity/v1"

	gotoDefaultAccountKey = "4266846632996939781"
)

// Scope markers identifying GoTo API surfaces within a granted scope set.
const (
	VoiceScopeMark = "voice-admin"
	ScimScopeMark  = "identity:scim.org"
)

// GoTo returns the provider definition for the GoTo (LogMeIn) API family:
// one OAuth client whose tokens, depending on granted scope, unlock the
// admin, voice-admin, or SCIM surface.
func GoTo() Provider {
	return Provider{
		Name:         "goto",
		AuthorizeURL: gotoAuthorizeURL,
		TokenURL:     gotoTokenURL,
		IssuerURL:    gotoIssuerURL,
		Scopes:       []string{"voice-admin.v1.read", "identity:scim.org"},
		Surfaces: []Surface{
			{Type: TokenTypeVoice, ScopeMark: VoiceScopeMark, APIBaseURL: gotoVoiceBaseURL},
			{Type: TokenTypeScim, ScopeMark: ScimScopeMark, APIBaseURL: gotoScimBaseURL},
			{Type: TokenTypeAdmin, APIBaseURL: gotoAdminBaseURL},
		},
		DefaultAccountKey: gotoDefaultAccountKey,
	}
}

// Registry holds the known provider definitions keyed by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry from the given provider definitions.
func NewRegistry(definitions ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(definitions))}
	for _, p := range definitions {
		r.providers[p.Name] = p
	}
	return r
}

// Default returns a registry containing the built-in provider catalog.
func Default() *Registry {
	return NewRegistry(GoTo())
}

// Get looks up a provider definition by name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return Provider{}, errors.Wrapf(errors.ErrProviderNotFound, "[Registry.Get] %q", name)
	}
	return p, nil
}

// Names lists the registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds or replaces a provider definition.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name] = p
}
