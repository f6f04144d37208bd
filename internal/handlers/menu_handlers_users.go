package handlers

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"conciergebot/internal/constants"
	"conciergebot/internal/flows"
	"conciergebot/internal/models"
	"conciergebot/internal/navigation"
	"conciergebot/internal/session"
	"conciergebot/internal/utils"
)

// loadUser загружает профиль. 404 - данные недоступны, а не сбой.
func (bh *BotHandler) loadUser(ctx context.Context, sess *session.ChatSession, id int64) (models.User, error) {
	user, res := bh.Deps.Backend.User(ctx, id, sess.AuthToken)
	if res.NotFound() {
		return models.User{}, fmt.Errorf("%w: пользователь %d не найден", flows.ErrUnavailable, id)
	}
	if !res.OK() {
		return models.User{}, resultError("загрузка пользователя", res.Result)
	}
	if user.ID == 0 {
		user.ID = id
	}
	return user, nil
}

// regionLabel ищет название региона. Справочник недоступен - показываем id.
func (bh *BotHandler) regionLabel(ctx context.Context, id string) string {
	regions, err := bh.Deps.Backend.Regions(ctx)
	if err != nil {
		bh.logger.Warn("справочник регионов недоступен", zap.Error(err))
	}
	return regionName(regions, id)
}

func (bh *BotHandler) profileSection(ctx context.Context, sess *session.ChatSession, _ sectionRequest) (navigation.Screen, error) {
	t := bh.Deps.Texts
	if sess.UserID == 0 {
		return navigation.Screen{}, fmt.Errorf("%w: профиль без регистрации", flows.ErrUnavailable)
	}
	user, err := bh.loadUser(ctx, sess, sess.UserID)
	if err != nil {
		return navigation.Screen{}, err
	}

	text := t.Get("profile.details",
		user.DisplayName(),
		utils.FormatPhoneNumber(user.Phone),
		groupLabel(user.Group),
		bh.regionLabel(ctx, user.Region),
		ratingLabel(user.Rating))

	kb := models.NewInlineKeyboard(
		models.Row(models.Btn(t.Get("button.edit_profile"), constants.CALLBACK_PREFIX_REGISTER+string(constants.ParseRole(user.Group)))),
		models.Row(models.Btn(t.Get("button.qr"), constants.CALLBACK_QR)),
	)
	kb.AddRow(navRow(t)...)
	return navigation.Screen{
		Messages: []models.Outgoing{{Text: text, Keyboard: kb}},
		Extra:    map[string]string{constants.EXTRA_USER_ID: strconv.FormatInt(sess.UserID, 10)},
	}, nil
}

// sendProfileQR отправляет QR-код со ссылкой на профиль пользователя в боте.
func (bh *BotHandler) sendProfileQR(ctx context.Context, sess *session.ChatSession) error {
	t := bh.Deps.Texts
	msgs := bh.Deps.Nav.Messages()
	botUsername := bh.Deps.Config.BotUsername
	if botUsername == "" || sess.UserID == 0 {
		_, err := msgs.SendToSlot(ctx, sess, constants.SLOT_WARNING, models.Outgoing{Text: t.Get("profile.qr_unavailable")})
		return err
	}

	link, err := utils.GenerateProfileLink(botUsername, sess.UserID)
	if err != nil {
		return fmt.Errorf("ссылка на профиль: %w", err)
	}
	png, err := utils.GenerateQRCode(botUsername, sess.UserID)
	if err != nil {
		return fmt.Errorf("генерация QR-кода: %w", err)
	}
	ref, err := msgs.Transport().SendPhoto(ctx, sess.ChatID, models.Attachment{
		Name:    "profile.png",
		Data:    png,
		Caption: t.Get("profile.qr_caption", link),
	}, nil)
	if err != nil {
		return fmt.Errorf("отправка QR-кода: %w", err)
	}
	ref.Media = true
	bh.Deps.Nav.Track(sess, ref)
	return nil
}

func (bh *BotHandler) userDetailsSection(ctx context.Context, sess *session.ChatSession, req sectionRequest) (navigation.Screen, error) {
	t := bh.Deps.Texts
	id, err := strconv.ParseInt(req.Arg, 10, 64)
	if err != nil || id <= 0 {
		return navigation.Screen{}, fmt.Errorf("%w: некорректный id пользователя %q", flows.ErrUnavailable, req.Arg)
	}
	user, err := bh.loadUser(ctx, sess, id)
	if err != nil {
		return navigation.Screen{}, err
	}

	text := t.Get("user.details",
		user.DisplayName(),
		groupLabel(user.Group),
		bh.regionLabel(ctx, user.Region),
		yearsLabel(user.WorkExperience),
		ratingLabel(user.Rating))

	kb := models.NewInlineKeyboard()
	if sess.UserID != 0 && sess.UserID != id {
		kb.AddRow(models.Btn(t.Get("button.rate"), constants.CALLBACK_PREFIX_RATE+req.Arg))
	}
	kb.AddRow(navRow(t)...)
	return navigation.Screen{
		Messages: []models.Outgoing{{Text: text, Keyboard: kb}},
		Extra:    map[string]string{constants.EXTRA_USER_ID: req.Arg},
	}, nil
}

// searchResultsSection - страница результатов поиска. Фильтр закодирован в аргументе.
func (bh *BotHandler) searchResultsSection(ctx context.Context, sess *session.ChatSession, req sectionRequest) (navigation.Screen, error) {
	t := bh.Deps.Texts
	filter := flows.DecodeSearch(req.Arg)
	list, res := bh.Deps.Backend.SearchUsers(ctx, filter, req.Page, sess.AuthToken)
	if !res.OK() {
		return navigation.Screen{}, resultError("поиск пользователей", res)
	}

	kb := models.NewInlineKeyboard()
	text := t.Get("search.empty")
	if len(list.Results) > 0 {
		pages := pageCount(list.Count)
		text = t.Get("search.results", list.Count, req.Page, pages)
		for _, u := range list.Results {
			label := utils.Truncate(utils.StripEmoji(u.DisplayName()), 40)
			if u.Rating != nil {
				label += " ⭐ " + ratingLabel(u.Rating)
			}
			kb.AddRow(models.Btn(label, constants.CALLBACK_PREFIX_USER+strconv.FormatInt(u.ID, 10)))
		}
		kb.AddRow(pagerRow(t, req.Page, pages)...)
	}
	kb.AddRow(models.Btn(t.Get("button.new_search"), constants.CALLBACK_PREFIX_SEARCH+filter.Group))
	kb.AddRow(navRow(t)...)

	return navigation.Screen{
		Messages: []models.Outgoing{{Text: text, Keyboard: kb}},
		Extra:    pageExtra(req.Arg, req.Page),
	}, nil
}
