package session

import (
	"sort"
	"strings"

	"conciergebot/internal/constants"
	"conciergebot/internal/models"
)

// Section - один экран меню в стеке навигации.
// Section is one menu screen frame of the navigation stack.
type Section struct {
	State        constants.MenuState `json:"state"`
	QueryMessage string              `json:"queryMessage,omitempty"`
	Messages     []models.MessageRef `json:"messages"`
	ReplyMarkup  *models.Keyboard    `json:"replyMarkup,omitempty"`
	Extra        map[string]string   `json:"extra,omitempty"`
}

// ExtraValue читает Extra, не предполагая наличие ключа.
func (s *Section) ExtraValue(key string) string {
	if s == nil || s.Extra == nil {
		return ""
	}
	return s.Extra[key]
}

// SetExtra дописывает значение в Extra.
func (s *Section) SetExtra(key, value string) {
	if s.Extra == nil {
		s.Extra = make(map[string]string)
	}
	s.Extra[key] = value
}

// AttachScratch помечает пространство имен scratch как принадлежащее разделу.
// При уходе назад с этого раздела его пространства очищаются.
func (s *Section) AttachScratch(ns string) {
	for _, existing := range s.ScratchNamespaces() {
		if existing == ns {
			return
		}
	}
	current := s.ExtraValue(constants.EXTRA_SCRATCH_NS)
	if current == "" {
		s.SetExtra(constants.EXTRA_SCRATCH_NS, ns)
		return
	}
	s.SetExtra(constants.EXTRA_SCRATCH_NS, current+","+ns)
}

// ScratchNamespaces возвращает пространства scratch, принадлежащие разделу.
func (s *Section) ScratchNamespaces() []string {
	raw := s.ExtraValue(constants.EXTRA_SCRATCH_NS)
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// ChatSession - состояние одного чата: стек разделов, scratch и слоты.
// ChatSession is the per-chat state: section stack, scratch and slots.
type ChatSession struct {
	ChatID       int64             `json:"chatId"`
	SectionStack []Section         `json:"sectionStack"`
	Scratch      map[string]string `json:"scratch"`
	Slots        map[string]Slot   `json:"slots"`

	// Профиль, известный после регистрации или /start.
	UserID    int64          `json:"userId,omitempty"`
	Username  string         `json:"username,omitempty"`
	Role      constants.Role `json:"role,omitempty"`
	AuthToken string         `json:"authToken,omitempty"`

	// Version используется хранилищами с оптимистичной блокировкой.
	Version int64 `json:"version"`
}

// New создает сессию с корневым разделом START.
func New(chatID int64) *ChatSession {
	s := &ChatSession{ChatID: chatID}
	s.EnsureRoot()
	return s
}

// EnsureRoot восстанавливает инварианты после загрузки: стек не пуст,
// на дне лежит START, карты инициализированы.
func (s *ChatSession) EnsureRoot() {
	if s.Scratch == nil {
		s.Scratch = make(map[string]string)
	}
	if s.Slots == nil {
		s.Slots = make(map[string]Slot)
	}
	if len(s.SectionStack) == 0 || s.SectionStack[0].State != constants.STATE_START {
		root := Section{State: constants.STATE_START}
		s.SectionStack = append([]Section{root}, s.SectionStack...)
	}
}

// Current возвращает верхний раздел стека. Стек никогда не пуст.
func (s *ChatSession) Current() *Section {
	s.EnsureRoot()
	return &s.SectionStack[len(s.SectionStack)-1]
}

// Root возвращает корневой раздел.
func (s *ChatSession) Root() *Section {
	s.EnsureRoot()
	return &s.SectionStack[0]
}

// Depth - количество разделов в стеке.
func (s *ChatSession) Depth() int { return len(s.SectionStack) }

// Push кладет раздел на вершину стека. Если верхний раздел уже в том же
// состоянии, он обновляется на месте: сообщения заменяются, Extra
// дополняется, поэтому два соседних раздела не делят одно состояние.
// Возвращает текущий раздел.
func (s *ChatSession) Push(sec Section) *Section {
	s.EnsureRoot()
	top := s.Current()
	if top.State != sec.State {
		s.SectionStack = append(s.SectionStack, sec)
		return s.Current()
	}

	if sec.QueryMessage != "" {
		top.QueryMessage = sec.QueryMessage
	}
	top.Messages = sec.Messages
	if sec.ReplyMarkup != nil {
		top.ReplyMarkup = sec.ReplyMarkup
	}
	for k, v := range sec.Extra {
		top.SetExtra(k, v)
	}
	return top
}

// TargetIndex - индекс раздела, к которому ведет возврат на levels уровней.
// Ниже корня не опускается.
func (s *ChatSession) TargetIndex(levels int) int {
	if levels < 1 {
		levels = 1
	}
	target := len(s.SectionStack) - 1 - levels
	if target < 0 {
		return 0
	}
	return target
}

// Truncate оставляет в стеке n нижних разделов, но не меньше одного.
func (s *ChatSession) Truncate(n int) {
	if n < 1 {
		n = 1
	}
	if n < len(s.SectionStack) {
		s.SectionStack = s.SectionStack[:n]
	}
}

// IndexOf ищет ближайший к вершине раздел в состоянии state.
func (s *ChatSession) IndexOf(state constants.MenuState) int {
	for i := len(s.SectionStack) - 1; i >= 0; i-- {
		if s.SectionStack[i].State == state {
			return i
		}
	}
	return -1
}

// AllMessages собирает ссылки на все сообщения стека и слотов.
func (s *ChatSession) AllMessages() []models.MessageRef {
	var refs []models.MessageRef
	for _, sec := range s.SectionStack {
		refs = append(refs, sec.Messages...)
	}
	names := make([]string, 0, len(s.Slots))
	for name := range s.Slots {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		refs = append(refs, s.Slots[name].Refs()...)
	}
	return refs
}

// Reset возвращает сессию к пустому корню: профиль, scratch и слоты сбрасываются.
// Удаление сообщений в чате - забота вызывающего.
func (s *ChatSession) Reset() {
	s.SectionStack = []Section{{State: constants.STATE_START}}
	s.Scratch = make(map[string]string)
	s.Slots = make(map[string]Slot)
	s.UserID = 0
	s.Username = ""
	s.Role = ""
	s.AuthToken = ""
}

// --- Scratch ---

func scratchKey(ns, key string) string { return ns + ":" + key }

// ScratchSet сохраняет значение в пространстве ns.
func (s *ChatSession) ScratchSet(ns, key, value string) {
	if s.Scratch == nil {
		s.Scratch = make(map[string]string)
	}
	s.Scratch[scratchKey(ns, key)] = value
}

// ScratchGet читает значение из пространства ns.
func (s *ChatSession) ScratchGet(ns, key string) (string, bool) {
	v, ok := s.Scratch[scratchKey(ns, key)]
	return v, ok
}

// ScratchDelete удаляет одно значение.
func (s *ChatSession) ScratchDelete(ns, key string) {
	delete(s.Scratch, scratchKey(ns, key))
}

// ScratchValues возвращает копию значений пространства ns без префикса.
func (s *ChatSession) ScratchValues(ns string) map[string]string {
	prefix := ns + ":"
	out := make(map[string]string)
	for k, v := range s.Scratch {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return out
}

// ScratchDrop удаляет все значения пространства ns и возвращает их количество.
func (s *ChatSession) ScratchDrop(ns string) int {
	prefix := ns + ":"
	dropped := 0
	for k := range s.Scratch {
		if strings.HasPrefix(k, prefix) {
			delete(s.Scratch, k)
			dropped++
		}
	}
	return dropped
}
