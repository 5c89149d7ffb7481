package mailapi

import (
	"net/http"

	"github.com/dmitrymomot/mailhub/svc/dispatch"
	"github.com/dmitrymomot/mailhub/svc/render"
)

// sendHandler decodes a request of type T and replies with the dispatch
// result. Only an invalid body produces a non-200 response.
func sendHandler[T any](a *api, send func(r *http.Request, req T) dispatch.Result) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req T
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, a.log, err)
			return
		}
		writeJSON(w, http.StatusOK, send(r, req))
	}
}

func (a *api) welcome(r *http.Request, req welcomeRequest) dispatch.Result {
	return a.dispatcher.SendWelcomeEmail(r.Context(), req.ServiceKey, req.To, req.Name)
}

func (a *api) verification(r *http.Request, req verificationRequest) dispatch.Result {
	return a.dispatcher.SendVerificationEmail(r.Context(), req.ServiceKey, req.To, req.Name, req.VerificationToken, req.VerificationURL)
}

func (a *api) passwordReset(r *http.Request, req passwordResetRequest) dispatch.Result {
	return a.dispatcher.SendPasswordResetEmail(r.Context(), req.ServiceKey, req.To, req.Name, req.ResetToken, req.ResetURL)
}

func (a *api) passwordChanged(r *http.Request, req passwordChangedRequest) dispatch.Result {
	return a.dispatcher.SendPasswordChangedEmail(r.Context(), req.ServiceKey, req.To, req.Name)
}

func (a *api) friendRequest(r *http.Request, req friendRequestRequest) dispatch.Result {
	return a.dispatcher.SendFriendRequestEmail(r.Context(), req.ServiceKey, req.To, req.Name, req.SenderName)
}

func (a *api) friendAccepted(r *http.Request, req friendAcceptedRequest) dispatch.Result {
	return a.dispatcher.SendFriendAcceptedEmail(r.Context(), req.ServiceKey, req.To, req.Name, req.FriendName)
}

func (a *api) custom(r *http.Request, req customRequest) dispatch.Result {
	return a.dispatcher.SendCustomEmail(r.Context(), req.ServiceKey, req.To, req.Subject, req.HTML, req.Text)
}

// withTemplate accepts any event type; an unknown one comes back as a failed result.
func (a *api) withTemplate(r *http.Request, req templateSendRequest) dispatch.Result {
	return a.dispatcher.SendWithTemplate(r.Context(), req.ServiceKey, render.EventType(req.TemplateType), req.To, req.Variables)
}
