package constants

import "strings"

// MenuState - стабильный идентификатор экрана меню.
// Значения сохраняются в персистентных сессиях, поэтому их нельзя переименовывать:
// отображаемый текст живет отдельно, в таблице internal/texts.
// MenuState is the stable routing id of a menu screen. Values are persisted.
type MenuState string

// Состояния меню / Menu states
const (
	STATE_START              MenuState = "start"
	STATE_SUPPLIERS_REGISTER MenuState = "suppliers_register"
	STATE_REGISTER           MenuState = "register"
	STATE_SERVICES           MenuState = "services"
	STATE_ORDERS             MenuState = "orders"
	STATE_ORDER_DETAILS      MenuState = "order_details"
	STATE_ADD_ORDER          MenuState = "add_order"
	STATE_MODIFY_ORDER       MenuState = "modify_order"
	STATE_USER_DETAILS       MenuState = "user_details"
	STATE_PROFILE            MenuState = "profile"
	STATE_SUPPORT            MenuState = "support"
	STATE_USERS_SEARCH       MenuState = "users_search"
	STATE_RATING             MenuState = "rating"
	STATE_DONE               MenuState = "done"
)

// AllStates - закрытый перечень состояний. Порядок значения не имеет.
var AllStates = []MenuState{
	STATE_START,
	STATE_SUPPLIERS_REGISTER,
	STATE_REGISTER,
	STATE_SERVICES,
	STATE_ORDERS,
	STATE_ORDER_DETAILS,
	STATE_ADD_ORDER,
	STATE_MODIFY_ORDER,
	STATE_USER_DETAILS,
	STATE_PROFILE,
	STATE_SUPPORT,
	STATE_USERS_SEARCH,
	STATE_RATING,
	STATE_DONE,
}

// Valid сообщает, входит ли состояние в перечень.
func (s MenuState) Valid() bool {
	for _, known := range AllStates {
		if s == known {
			return true
		}
	}
	return false
}

func (s MenuState) String() string { return string(s) }

// Role - группа пользователя на бэкенде.
type Role string

// Роли пользователей / User roles
const (
	ROLE_DESIGNER      Role = "designer"
	ROLE_OUTSOURCER    Role = "outsourcer"
	ROLE_SUPPLIER      Role = "supplier"
	ROLE_UNCATEGORIZED Role = "uncategorized"
)

// ParseRole приводит значение группы с бэкенда к Role.
// Неизвестные группы считаются ROLE_UNCATEGORIZED.
func ParseRole(group string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(group))) {
	case ROLE_DESIGNER:
		return ROLE_DESIGNER
	case ROLE_OUTSOURCER:
		return ROLE_OUTSOURCER
	case ROLE_SUPPLIER:
		return ROLE_SUPPLIER
	default:
		return ROLE_UNCATEGORIZED
	}
}

// Callback-токены. Каждая кнопка несет однозначный токен, текст кнопки
// на маршрутизацию не влияет. Telegram ограничивает callback_data 64 байтами.
// Callback tokens carried by every button.
const (
	CALLBACK_BACK     = "back"
	CALLBACK_HOME     = "home"
	CALLBACK_CANCEL   = "cancel"
	CALLBACK_CONTINUE = "continue"
	CALLBACK_SUBMIT   = "submit"
	CALLBACK_EXPORT   = "export"
	CALLBACK_QR       = "qr"
	CALLBACK_LOGOUT   = "logout"
	CALLBACK_NOOP     = "noop"

	CALLBACK_PREFIX_MENU     = "menu:"
	CALLBACK_PREFIX_CHOICE   = "choice:"
	CALLBACK_PREFIX_PAGE     = "page:"
	CALLBACK_PREFIX_ORDER    = "order:"
	CALLBACK_PREFIX_EDIT     = "edit_order:"
	CALLBACK_PREFIX_USER     = "user:"
	CALLBACK_PREFIX_RATE     = "rate:"
	CALLBACK_PREFIX_REGISTER = "register:"
	CALLBACK_PREFIX_SEARCH   = "search:"
)

// MenuToken строит токен перехода в раздел.
func MenuToken(state MenuState) string { return CALLBACK_PREFIX_MENU + string(state) }

// ChoiceToken строит токен выбора значения поля.
func ChoiceToken(value string) string { return CALLBACK_PREFIX_CHOICE + value }

// Имена слотов для "летучих" сообщений.
const (
	SLOT_LAST    = "last"
	SLOT_WARNING = "warning"
	SLOT_TEMP    = "temp"
)

// Ключи Section.Extra.
const (
	EXTRA_FLOW        = "flow"
	EXTRA_FLOW_STATE  = "flow_state"
	EXTRA_FLOW_ARG    = "flow_arg"
	EXTRA_SCRATCH_NS  = "scratch_ns"
	EXTRA_ENTRY_DEPTH = "entry_depth"
	EXTRA_PAGE        = "page"
	EXTRA_ORDER_ID    = "order_id"
	EXTRA_USER_ID     = "user_id"
	EXTRA_QUERY       = "query"
	EXTRA_CATEGORY    = "category"
)

// Ключ идентификатора созданного ресурса в scratch потока.
const SCRATCH_RESOURCE_ID = "id"

// ORDERS_PAGE_SIZE - количество элементов на странице списков.
const ORDERS_PAGE_SIZE = 5

// Команды / Commands
const (
	COMMAND_START  = "start"
	COMMAND_MENU   = "menu"
	COMMAND_CANCEL = "cancel"
)

// Префикс deep-link параметра /start для открытия профиля.
const DEEPLINK_PROFILE_PREFIX = "profile_"
