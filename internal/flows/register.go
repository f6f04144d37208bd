package flows

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"conciergebot/internal/constants"
	"conciergebot/internal/engine"
	"conciergebot/internal/models"
	"conciergebot/internal/session"
	"conciergebot/internal/utils"
)

// Поля регистрации.
const (
	fieldName           = "name"
	fieldCategories     = "categories"
	fieldWorkExperience = "work_experience"
	fieldRegion         = "region"
	fieldSegment        = "segment"
	fieldPhone          = "phone"
)

// register - регистрация или изменение профиля. arg - выбранная группа.
// Поставщик регистрирует компанию и не указывает стаж.
func (r *Registry) register(ctx context.Context, sess *session.ChatSession, arg string) (*engine.Flow, error) {
	role := constants.ParseRole(arg)
	if role == constants.ROLE_UNCATEGORIZED {
		role = sess.Role
	}
	if role == constants.ROLE_UNCATEGORIZED || role == "" {
		return nil, fmt.Errorf("%w: группа %q не поддерживает регистрацию", ErrUnavailable, arg)
	}

	categories, err := r.backend.Categories(ctx)
	if err != nil {
		return nil, err
	}
	regions, err := r.backend.Regions(ctx)
	if err != nil {
		return nil, err
	}
	segments, err := r.backend.Segments(ctx)
	if err != nil {
		return nil, err
	}

	state := constants.STATE_REGISTER
	namePrompt := r.texts.Get("register.name")
	if role == constants.ROLE_SUPPLIER {
		state = constants.STATE_SUPPLIERS_REGISTER
		namePrompt = r.texts.Get("register.company")
	}

	fields := []engine.Field{
		{Name: fieldName, Prompt: namePrompt, Validate: utils.ValidateName},
		{Name: fieldCategories, Prompt: r.texts.Get("register.categories"), Kind: engine.FieldMultiChoice, Choices: categoryChoices(categories)},
	}
	if role != constants.ROLE_SUPPLIER {
		fields = append(fields, engine.Field{
			Name:     fieldWorkExperience,
			Prompt:   r.texts.Get("register.work_experience"),
			Optional: true,
			Validate: utils.ValidateYears,
		})
	}
	fields = append(fields,
		engine.Field{Name: fieldRegion, Prompt: r.texts.Get("register.region"), Kind: engine.FieldChoice, Choices: regionChoices(regions)},
		engine.Field{Name: fieldSegment, Prompt: r.texts.Get("register.segment"), Kind: engine.FieldChoice, Choices: segmentChoices(segments)},
		engine.Field{Name: fieldPhone, Prompt: r.texts.Get("register.phone"), Kind: engine.FieldContact, Validate: utils.ValidatePhoneNumber},
	)

	flow := &engine.Flow{
		State:  state,
		Fields: fields,
		Commit: func(ctx context.Context, sess *session.ChatSession, values map[string]string, resourceID string) engine.CommitResult {
			return r.commitUser(ctx, sess, role, values, resourceID)
		},
	}
	// Зарегистрированный пользователь меняет профиль: отправка сразу обновляет его.
	if sess.UserID != 0 {
		flow.Seed = map[string]string{constants.SCRATCH_RESOURCE_ID: strconv.FormatInt(sess.UserID, 10)}
	}
	return flow, nil
}

func (r *Registry) commitUser(ctx context.Context, sess *session.ChatSession, role constants.Role, values map[string]string, resourceID string) engine.CommitResult {
	user := models.User{
		ID:         sess.ChatID,
		Name:       values[fieldName],
		Username:   sess.Username,
		Group:      string(role),
		Categories: utils.StringSliceToInt64Slice(engine.SplitValues(values[fieldCategories])),
		Region:     values[fieldRegion],
		Segment:    values[fieldSegment],
		Phone:      values[fieldPhone],
	}
	if raw := values[fieldWorkExperience]; raw != "" {
		if years, err := strconv.Atoi(raw); err == nil {
			user.WorkExperience = &years
		}
	}

	var (
		saved   models.User
		message string
	)
	if resourceID == "" {
		created, res := r.backend.CreateUser(ctx, user)
		if !res.OK() {
			return outcome(res.Result)
		}
		saved = created
		sess.AuthToken = res.AuthToken
		message = r.texts.Get("register.success")
	} else {
		id, err := strconv.ParseInt(resourceID, 10, 64)
		if err != nil {
			return engine.CommitResult{Outcome: engine.CommitFailed, Detail: err.Error()}
		}
		updated, res := r.backend.UpdateUser(ctx, id, user, sess.AuthToken)
		if !res.OK() {
			out := outcome(res.Result)
			out.ResourceID = resourceID
			return out
		}
		saved = updated
		if res.AuthToken != "" {
			sess.AuthToken = res.AuthToken
		}
		message = r.texts.Get("register.updated")
	}

	if saved.ID == 0 {
		saved.ID = sess.ChatID
	}
	sess.UserID = saved.ID
	sess.Role = role
	r.logger.Info("профиль сохранен",
		zap.Int64("chatID", sess.ChatID), zap.Int64("userID", saved.ID), zap.String("role", string(role)))

	return engine.CommitResult{
		Outcome:    engine.CommitOK,
		ResourceID: strconv.FormatInt(saved.ID, 10),
		Message:    message,
		Next:       constants.STATE_SERVICES,
	}
}

func categoryChoices(items []models.Category) []engine.Choice {
	out := make([]engine.Choice, 0, len(items))
	for _, c := range items {
		out = append(out, engine.Choice{Value: strconv.FormatInt(c.ID, 10), Label: c.Name})
	}
	return out
}

func regionChoices(items []models.Region) []engine.Choice {
	out := make([]engine.Choice, 0, len(items))
	for _, c := range items {
		out = append(out, engine.Choice{Value: strconv.FormatInt(c.ID, 10), Label: c.Name})
	}
	return out
}

func segmentChoices(items []models.Segment) []engine.Choice {
	out := make([]engine.Choice, 0, len(items))
	for _, s := range items {
		out = append(out, engine.Choice{Value: s.Code, Label: s.Name})
	}
	return out
}
