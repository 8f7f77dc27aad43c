package enums

// PayloadKind describes how a stash item is handed to the buyer.
type PayloadKind string

const (
	PayloadKindText     PayloadKind = "text"
	PayloadKindPhoto    PayloadKind = "photo"
	PayloadKindDocument PayloadKind = "document"
)

var payloadKinds = newValueSet("payload kind", false, PayloadKindText, PayloadKindPhoto, PayloadKindDocument)

func (k PayloadKind) String() string { return string(k) }

func (k PayloadKind) IsValid() bool { return payloadKinds.contains(k) }

// HasFile reports whether the payload is delivered by file reference.
func (k PayloadKind) HasFile() bool {
	return k == PayloadKindPhoto || k == PayloadKindDocument
}

func ParsePayloadKind(value string) (PayloadKind, error) {
	return payloadKinds.parse(value)
}
