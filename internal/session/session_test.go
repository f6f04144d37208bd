package session

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conciergebot/internal/constants"
	"conciergebot/internal/models"
)

func TestNewSessionHasRoot(t *testing.T) {
	sess := New(42)
	require.Equal(t, 1, sess.Depth())
	assert.Equal(t, constants.STATE_START, sess.Current().State)
	assert.NotNil(t, sess.Scratch)
	assert.NotNil(t, sess.Slots)
}

func TestPushAppendsNewState(t *testing.T) {
	sess := New(1)
	sec := sess.Push(Section{State: constants.STATE_SERVICES, QueryMessage: "menu:services"})

	assert.Equal(t, 2, sess.Depth())
	assert.Equal(t, constants.STATE_SERVICES, sec.State)
	assert.Equal(t, sec, sess.Current())
}

func TestPushSameStateUpdatesInPlace(t *testing.T) {
	sess := New(1)
	sess.Push(Section{
		State:    constants.STATE_ORDERS,
		Messages: []models.MessageRef{{ID: 10, Text: "page 1"}},
		Extra:    map[string]string{constants.EXTRA_PAGE: "1", "filter": "open"},
	})
	before := sess.Depth()

	sec := sess.Push(Section{
		State:    constants.STATE_ORDERS,
		Messages: []models.MessageRef{{ID: 11, Text: "page 2"}},
		Extra:    map[string]string{constants.EXTRA_PAGE: "2"},
	})

	assert.Equal(t, before, sess.Depth())
	assert.Equal(t, []models.MessageRef{{ID: 11, Text: "page 2"}}, sec.Messages)
	assert.Equal(t, "2", sec.ExtraValue(constants.EXTRA_PAGE))
	assert.Equal(t, "open", sec.ExtraValue("filter"), "extra is merged, not replaced")
}

func TestNoDuplicateAdjacentStateProperty(t *testing.T) {
	states := []constants.MenuState{
		constants.STATE_SERVICES, constants.STATE_ORDERS, constants.STATE_ORDER_DETAILS, constants.STATE_PROFILE,
	}
	rng := rand.New(rand.NewSource(7))
	sess := New(1)

	for i := 0; i < 500; i++ {
		state := states[rng.Intn(len(states))]
		before := sess.Depth()
		sameAsTop := sess.Current().State == state

		sess.Push(Section{State: state})

		if sameAsTop {
			assert.Equal(t, before, sess.Depth())
		} else {
			assert.Equal(t, before+1, sess.Depth())
		}
	}
	for i := 1; i < sess.Depth(); i++ {
		assert.NotEqual(t, sess.SectionStack[i-1].State, sess.SectionStack[i].State)
	}
}

func TestStackNeverEmptyProperty(t *testing.T) {
	states := []constants.MenuState{constants.STATE_SERVICES, constants.STATE_ORDERS, constants.STATE_PROFILE}
	rng := rand.New(rand.NewSource(11))
	sess := New(1)

	for i := 0; i < 1000; i++ {
		if rng.Intn(2) == 0 {
			sess.Push(Section{State: states[rng.Intn(len(states))]})
			continue
		}
		levels := rng.Intn(5)
		sess.Truncate(sess.TargetIndex(levels) + 1)
		require.GreaterOrEqual(t, sess.Depth(), 1)
		assert.Equal(t, constants.STATE_START, sess.SectionStack[0].State)
	}
}

func TestTargetIndexClampsToRoot(t *testing.T) {
	sess := New(1)
	assert.Equal(t, 0, sess.TargetIndex(1))
	assert.Equal(t, 0, sess.TargetIndex(10))

	sess.Push(Section{State: constants.STATE_SERVICES})
	sess.Push(Section{State: constants.STATE_ADD_ORDER})
	assert.Equal(t, 1, sess.TargetIndex(1))
	assert.Equal(t, 1, sess.TargetIndex(0), "levels default to one")
	assert.Equal(t, 0, sess.TargetIndex(2))
	assert.Equal(t, 0, sess.TargetIndex(3))
}

func TestTruncateKeepsRoot(t *testing.T) {
	sess := New(1)
	sess.Push(Section{State: constants.STATE_SERVICES})
	sess.Truncate(0)
	assert.Equal(t, 1, sess.Depth())
}

func TestEnsureRootRepairsLoadedStack(t *testing.T) {
	sess := &ChatSession{ChatID: 1, SectionStack: []Section{{State: constants.STATE_SERVICES}}}
	sess.EnsureRoot()
	require.Equal(t, 2, sess.Depth())
	assert.Equal(t, constants.STATE_START, sess.SectionStack[0].State)
	assert.Equal(t, constants.STATE_SERVICES, sess.Current().State)
}

func TestScratchNamespaces(t *testing.T) {
	sess := New(1)
	sess.ScratchSet("add_order", "title", "Кухня")
	sess.ScratchSet("add_order", "price", "1000")
	sess.ScratchSet("search", "keywords", "мебель")

	v, ok := sess.ScratchGet("add_order", "title")
	assert.True(t, ok)
	assert.Equal(t, "Кухня", v)
	assert.Equal(t, map[string]string{"title": "Кухня", "price": "1000"}, sess.ScratchValues("add_order"))

	assert.Equal(t, 2, sess.ScratchDrop("add_order"))
	assert.Empty(t, sess.ScratchValues("add_order"))
	assert.Equal(t, map[string]string{"keywords": "мебель"}, sess.ScratchValues("search"))
}

func TestSectionAttachScratch(t *testing.T) {
	sec := &Section{State: constants.STATE_ADD_ORDER}
	sec.AttachScratch("add_order")
	sec.AttachScratch("add_order")
	sec.AttachScratch("upload")

	assert.Equal(t, []string{"add_order", "upload"}, sec.ScratchNamespaces())
	assert.Nil(t, (&Section{}).ScratchNamespaces())
}

func TestResetClearsEverything(t *testing.T) {
	sess := New(1)
	sess.Push(Section{State: constants.STATE_SERVICES})
	sess.ScratchSet("x", "y", "z")
	sess.SetSlot(constants.SLOT_WARNING, SingleSlot(models.MessageRef{ID: 3}))
	sess.UserID, sess.AuthToken, sess.Role = 5, "tok", constants.ROLE_DESIGNER

	sess.Reset()

	assert.Equal(t, 1, sess.Depth())
	assert.Empty(t, sess.Scratch)
	assert.Empty(t, sess.Slots)
	assert.Zero(t, sess.UserID)
	assert.Empty(t, sess.AuthToken)
	assert.Empty(t, sess.Role)
}

func TestAllMessages(t *testing.T) {
	sess := New(1)
	sess.Root().Messages = []models.MessageRef{{ID: 1}}
	sess.Push(Section{State: constants.STATE_SERVICES, Messages: []models.MessageRef{{ID: 2}, {ID: 3}}})
	sess.SetSlot(constants.SLOT_WARNING, SingleSlot(models.MessageRef{ID: 4}))
	sess.SetSlot(constants.SLOT_TEMP, MapSlot(map[string]models.MessageRef{"b": {ID: 6}, "a": {ID: 5}}))

	var ids []int
	for _, ref := range sess.AllMessages() {
		ids = append(ids, ref.ID)
	}
	assert.Equal(t, []int{1, 2, 3, 5, 6, 4}, ids)
}
