package enums

// NotificationKind separates plain messages from stash deliveries in the outbox.
type NotificationKind string

const (
	NotificationKindMessage  NotificationKind = "message"
	NotificationKindDelivery NotificationKind = "delivery"
)

var notificationKinds = newValueSet("notification kind", false, NotificationKindMessage, NotificationKindDelivery)

func (n NotificationKind) String() string { return string(n) }

func (n NotificationKind) IsValid() bool { return notificationKinds.contains(n) }

func ParseNotificationKind(value string) (NotificationKind, error) {
	return notificationKinds.parse(value)
}
