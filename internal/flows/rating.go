package flows

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"conciergebot/internal/constants"
	"conciergebot/internal/engine"
	"conciergebot/internal/models"
	"conciergebot/internal/session"
	"conciergebot/internal/utils"
)

const (
	questionPrefix = "q_"
	fieldComment   = "comment"
)

var scoreChoices = []engine.Choice{
	{Value: "1", Label: "1"},
	{Value: "2", Label: "2"},
	{Value: "3", Label: "3"},
	{Value: "4", Label: "4"},
	{Value: "5", Label: "5"},
}

// rating - анкета оценки пользователя arg: по полю на каждый вопрос и комментарий.
func (r *Registry) rating(ctx context.Context, sess *session.ChatSession, arg string) (*engine.Flow, error) {
	receiver, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || receiver <= 0 {
		return nil, fmt.Errorf("%w: некорректный id пользователя %q", ErrUnavailable, arg)
	}
	questions, err := r.backend.RatingQuestions(ctx)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	fields := make([]engine.Field, 0, len(questions)+1)
	for _, q := range questions {
		fields = append(fields, engine.Field{
			Name:    questionPrefix + strconv.FormatInt(q.ID, 10),
			Prompt:  r.texts.Get("rating.question", q.Text),
			Kind:    engine.FieldChoice,
			Choices: scoreChoices,
		})
	}
	fields = append(fields, engine.Field{
		Name:     fieldComment,
		Prompt:   r.texts.Get("rating.comment"),
		Optional: true,
		Validate: utils.ValidateText(fieldComment, 1, 1000),
	})

	return &engine.Flow{
		State:  constants.STATE_RATING,
		Fields: fields,
		Commit: func(ctx context.Context, sess *session.ChatSession, values map[string]string, _ string) engine.CommitResult {
			return r.commitRating(ctx, sess, receiver, values)
		},
	}, nil
}

func (r *Registry) commitRating(ctx context.Context, sess *session.ChatSession, receiver int64, values map[string]string) engine.CommitResult {
	if receiver == sess.UserID {
		return engine.CommitResult{Outcome: engine.CommitConflict, Message: r.texts.Get("rating.self")}
	}

	rating := models.Rating{Sender: sess.UserID, Receiver: receiver, Comment: values[fieldComment]}
	for name, raw := range values {
		if !strings.HasPrefix(name, questionPrefix) {
			continue
		}
		question, err := strconv.ParseInt(strings.TrimPrefix(name, questionPrefix), 10, 64)
		if err != nil {
			continue
		}
		score, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		rating.Answers = append(rating.Answers, models.RatingAnswer{Question: question, Value: score})
	}
	sort.Slice(rating.Answers, func(i, j int) bool { return rating.Answers[i].Question < rating.Answers[j].Question })

	out := outcome(r.backend.SubmitRating(ctx, rating, sess.AuthToken))
	switch out.Outcome {
	case engine.CommitOK:
		out.Message = r.texts.Get("rating.success")
		out.Next = constants.STATE_USER_DETAILS
		out.NextArg = strconv.FormatInt(receiver, 10)
	case engine.CommitConflict:
		out.Message = r.texts.Get("rating.duplicate")
	}
	return out
}
