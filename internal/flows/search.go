package flows

import (
	"context"
	"net/url"
	"strings"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"conciergebot/internal/apperrors"
	"conciergebot/internal/constants"
	"conciergebot/internal/engine"
	"conciergebot/internal/models"
	"conciergebot/internal/session"
)

const (
	fieldKeywords = "keywords"
	fieldCategory = "category"
)

// ParseKeywords разбивает запрос на слова. Фразы в кавычках остаются целыми:
// `кухня "из массива"` - это два ключевых слова.
func ParseKeywords(input string) ([]string, error) {
	words, err := shellquote.Split(input)
	if err != nil {
		return nil, apperrors.NewValidationError(fieldKeywords, "Закройте кавычки в запросе.")
	}
	out := words[:0]
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		return nil, apperrors.NewValidationError(fieldKeywords, "Введите хотя бы одно слово.")
	}
	return out, nil
}

func validateKeywords(input string) (string, error) {
	words, err := ParseKeywords(input)
	if err != nil {
		return "", err
	}
	return shellquote.Join(words...), nil
}

// EncodeSearch упаковывает фильтр в аргумент раздела результатов.
func EncodeSearch(filter models.SearchFilter) string {
	v := url.Values{}
	v.Set("q", shellquote.Join(filter.Keywords...))
	if filter.Category != "" {
		v.Set("category", filter.Category)
	}
	if filter.Group != "" {
		v.Set("group", filter.Group)
	}
	return v.Encode()
}

// DecodeSearch - обратная операция к EncodeSearch.
func DecodeSearch(arg string) models.SearchFilter {
	v, err := url.ParseQuery(arg)
	if err != nil {
		return models.SearchFilter{}
	}
	keywords, _ := shellquote.Split(v.Get("q"))
	return models.SearchFilter{Keywords: keywords, Category: v.Get("category"), Group: v.Get("group")}
}

// search - поиск пользователей группы arg по ключевым словам и категории.
func (r *Registry) search(ctx context.Context, sess *session.ChatSession, arg string) (*engine.Flow, error) {
	categories, err := r.backend.Categories(ctx)
	if err != nil {
		return nil, err
	}
	group := ""
	if role := constants.ParseRole(arg); role != constants.ROLE_UNCATEGORIZED {
		group = string(role)
	}

	return &engine.Flow{
		State: constants.STATE_USERS_SEARCH,
		Fields: []engine.Field{
			{Name: fieldKeywords, Prompt: r.texts.Get("search.keywords"), Validate: validateKeywords},
			{Name: fieldCategory, Prompt: r.texts.Get("search.category"), Kind: engine.FieldChoice, Choices: categoryChoices(categories), Optional: true},
		},
		Commit: func(ctx context.Context, sess *session.ChatSession, values map[string]string, _ string) engine.CommitResult {
			keywords, _ := shellquote.Split(values[fieldKeywords])
			filter := models.SearchFilter{Keywords: keywords, Category: values[fieldCategory], Group: group}

			page, res := r.backend.SearchUsers(ctx, filter, 1, sess.AuthToken)
			out := outcome(res)
			if out.Outcome != engine.CommitOK {
				return out
			}
			r.logger.Info("поиск пользователей",
				zap.Int64("chatID", sess.ChatID), zap.Strings("keywords", keywords), zap.Int("found", page.Count))
			if page.Count == 0 && len(page.Results) == 0 {
				out.Message = r.texts.Get("search.empty")
				return out
			}
			out.Next = constants.STATE_USERS_SEARCH
			out.NextArg = EncodeSearch(filter)
			return out
		},
	}, nil
}
