package message

// Origin discriminates who authored a message.
type Origin string

const (
	OriginCustomer Origin = "customer"
	OriginUser     Origin = "user"
	OriginSystem   Origin = "system"
)

func (o Origin) IsValid() bool {
	switch o {
	case OriginCustomer, OriginUser, OriginSystem:
		return true
	}
	return false
}

func (o Origin) String() string {
	return string(o)
}

// Type is the message content type.
type Type string

const (
	TypeText     Type = "text"
	TypeImage    Type = "image"
	TypeTemplate Type = "template"
	// TypeWhisper is an automated reply suggestion surfaced to the officer;
	// it is never delivered to the customer.
	TypeWhisper Type = "whisper"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeText, TypeImage, TypeTemplate, TypeWhisper:
		return true
	}
	return false
}

func (t Type) String() string {
	return string(t)
}

// DeliveryStatus tracks the remote delivery lifecycle of a message.
type DeliveryStatus string

const (
	DeliveryQueued      DeliveryStatus = "queued"
	DeliverySent        DeliveryStatus = "sent"
	DeliveryDelivered   DeliveryStatus = "delivered"
	DeliveryRead        DeliveryStatus = "read"
	DeliveryFailed      DeliveryStatus = "failed"
	DeliveryUndelivered DeliveryStatus = "undelivered"
)

func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryQueued, DeliverySent, DeliveryDelivered, DeliveryRead,
		DeliveryFailed, DeliveryUndelivered:
		return true
	}
	return false
}

func (s DeliveryStatus) String() string {
	return string(s)
}

// IsTerminalFailure reports whether the message definitively failed to reach
// the customer.
func (s DeliveryStatus) IsTerminalFailure() bool {
	return s == DeliveryFailed || s == DeliveryUndelivered
}

// Rank orders the success path so late-arriving status events cannot move a
// message backwards.
func (s DeliveryStatus) Rank() int {
	switch s {
	case DeliveryQueued:
		return 0
	case DeliverySent:
		return 1
	case DeliveryDelivered:
		return 2
	case DeliveryRead:
		return 3
	default:
		return 4
	}
}
