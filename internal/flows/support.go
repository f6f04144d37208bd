package flows

import (
	"context"

	"conciergebot/internal/constants"
	"conciergebot/internal/engine"
	"conciergebot/internal/models"
	"conciergebot/internal/session"
	"conciergebot/internal/utils"
)

const fieldQuestion = "question"

func (r *Registry) support(sess *session.ChatSession) (*engine.Flow, error) {
	return &engine.Flow{
		State: constants.STATE_SUPPORT,
		Fields: []engine.Field{
			{Name: fieldQuestion, Prompt: r.texts.Get("support.question"), Validate: utils.ValidateText(fieldQuestion, 5, 2000)},
		},
		Commit: func(ctx context.Context, sess *session.ChatSession, values map[string]string, _ string) engine.CommitResult {
			req := models.SupportRequest{UserID: sess.UserID, Username: sess.Username, Question: values[fieldQuestion]}
			if req.UserID == 0 {
				req.UserID = sess.ChatID
			}
			out := outcome(r.backend.SubmitSupport(ctx, req, sess.AuthToken))
			if out.Outcome != engine.CommitOK {
				return out
			}
			from := sess.Username
			if from == "" {
				from = "без username"
			} else {
				from = "@" + from
			}
			r.notify(ctx, r.texts.Get("support.admin", from, sess.ChatID, req.Question))
			out.Message = r.texts.Get("support.success")
			return out
		},
	}, nil
}
