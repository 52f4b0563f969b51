package testutil

import (
	"net/http"

	"adjudicator/pkg/requestcontext"
)

// WithCaller attaches an authenticated caller, as the auth middleware would.
func WithCaller(req *http.Request, caller requestcontext.Caller) *http.Request {
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), caller))
}

// WithStakeholder is WithCaller for the stakeholder role.
func WithStakeholder(req *http.Request, subject string) *http.Request {
	return WithCaller(req, requestcontext.Caller{Subject: subject, Role: "stakeholder"})
}
