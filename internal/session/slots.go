package session

import (
	"sort"

	"conciergebot/internal/models"
)

// SlotKind - форма содержимого слота.
type SlotKind string

const (
	SlotSingle SlotKind = "single"
	SlotList   SlotKind = "list"
	SlotMap    SlotKind = "map"
)

// Slot - именованное место для "летучих" сообщений: одно сообщение,
// список или набор по ключам.
type Slot struct {
	Kind  SlotKind                     `json:"kind"`
	List  []models.MessageRef          `json:"list,omitempty"`
	Keyed map[string]models.MessageRef `json:"keyed,omitempty"`
}

// SingleSlot создает слот с одним сообщением.
func SingleSlot(ref models.MessageRef) Slot {
	return Slot{Kind: SlotSingle, List: []models.MessageRef{ref}}
}

// ListSlot создает слот со списком сообщений.
func ListSlot(refs ...models.MessageRef) Slot {
	return Slot{Kind: SlotList, List: refs}
}

// MapSlot создает слот с сообщениями по ключам.
func MapSlot(refs map[string]models.MessageRef) Slot {
	return Slot{Kind: SlotMap, Keyed: refs}
}

// Refs возвращает все ссылки слота. Для MapSlot порядок определяется ключами.
func (s Slot) Refs() []models.MessageRef {
	switch s.Kind {
	case SlotMap:
		keys := make([]string, 0, len(s.Keyed))
		for k := range s.Keyed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]models.MessageRef, 0, len(keys))
		for _, k := range keys {
			out = append(out, s.Keyed[k])
		}
		return out
	default:
		return append([]models.MessageRef(nil), s.List...)
	}
}

// Single возвращает ссылку одиночного слота.
func (s Slot) Single() (models.MessageRef, bool) {
	if s.Kind != SlotSingle || len(s.List) == 0 {
		return models.MessageRef{}, false
	}
	return s.List[0], true
}

// SetSlot занимает слот.
func (s *ChatSession) SetSlot(name string, slot Slot) {
	if s.Slots == nil {
		s.Slots = make(map[string]Slot)
	}
	s.Slots[name] = slot
}

// GetSlot возвращает содержимое слота.
func (s *ChatSession) GetSlot(name string) (Slot, bool) {
	slot, ok := s.Slots[name]
	return slot, ok
}

// AppendToSlot добавляет сообщение в списочный слот.
func (s *ChatSession) AppendToSlot(name string, ref models.MessageRef) {
	slot, ok := s.GetSlot(name)
	if !ok || slot.Kind != SlotList {
		slot = ListSlot(slot.Refs()...)
	}
	slot.List = append(slot.List, ref)
	s.SetSlot(name, slot)
}

// ClearSlotRefs освобождает слот без удаления сообщений.
func (s *ChatSession) ClearSlotRefs(name string) {
	delete(s.Slots, name)
}
