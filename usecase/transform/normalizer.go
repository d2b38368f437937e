package transform

import (
	"strings"

	"go.uber.org/zap"

	"github.com/shoplake/reconciler/domain"
)

// Result carries a normalized event together with the validation defects
// discovered while mapping it. Defects never fail the batch; they are routed
// to the quality auditor.
type Result struct {
	Event  domain.NormalizedEvent
	Issues []domain.Issue
}

// Normalizer maps loosely-structured vendor payloads into the three
// canonical event schemas. It is a pure function over its input plus the
// static mapping tables.
type Normalizer struct {
	unknownVendor string
	logger        *zap.Logger
}

func NewNormalizer(unknownVendor string, logger *zap.Logger) *Normalizer {
	if unknownVendor == "" {
		unknownVendor = domain.UnknownVendor
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		unknownVendor: unknownVendor,
		logger:        logger,
	}
}

// Normalize dispatches on the declared event type. Unknown types and
// unparseable payloads are structural errors: the single event is rejected,
// the batch continues.
func (n *Normalizer) Normalize(raw *domain.RawEvent) (*Result, error) {
	if raw == nil {
		return nil, domain.ErrInvalidPayload
	}

	kind, ok := domain.KindOf(raw.EventType)
	if !ok {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "unsupported event type "+raw.EventType, domain.ErrUnsupportedEventType)
	}

	payload, err := raw.DecodePayload()
	if err != nil {
		return nil, err
	}

	res := &Result{}
	switch kind {
	case domain.KindOrder:
		res.Event = domain.NormalizedEvent{Kind: kind, Order: n.normalizeOrder(raw, payload, res)}
	case domain.KindPayment:
		res.Event = domain.NormalizedEvent{Kind: kind, Payment: n.normalizePayment(raw, payload, res)}
	case domain.KindRefund:
		res.Event = domain.NormalizedEvent{Kind: kind, Refund: n.normalizeRefund(raw, payload, res)}
	}

	n.checkRequired(kind, payload, res)
	return res, nil
}

func (n *Normalizer) normalizeOrder(raw *domain.RawEvent, payload map[string]interface{}, res *Result) *domain.Order {
	return &domain.Order{
		OrderID:     lookupString(payload, orderMapping["order_id"]),
		CustomerID:  lookupString(payload, orderMapping["customer_id"]),
		Vendor:      n.vendor(raw, payload),
		OrderAmount: lookupFloat(payload, orderMapping["amount"]),
		OrderStatus: lookupString(payload, orderMapping["status"]),
		CreatedAt:   lookupTime(payload, orderMapping["created_at"]),
		EventID:     raw.EventID,
	}
}

func (n *Normalizer) normalizePayment(raw *domain.RawEvent, payload map[string]interface{}, res *Result) *domain.Payment {
	payment := &domain.Payment{
		PaymentID:     lookupString(payload, paymentMapping["payment_id"]),
		OrderID:       lookupString(payload, paymentMapping["order_id"]),
		Vendor:        n.vendor(raw, payload),
		PaymentAmount: lookupFloat(payload, paymentMapping["amount"]),
		PaymentMethod: lookupString(payload, paymentMapping["method"]),
		PaymentDate:   lookupTime(payload, paymentMapping["date"]),
		EventID:       raw.EventID,
	}
	payment.PaymentStatus = n.normalizeStatus(lookupString(payload, paymentMapping["status"]), payment.PaymentID, res)
	return payment
}

func (n *Normalizer) normalizeRefund(raw *domain.RawEvent, payload map[string]interface{}, res *Result) *domain.Refund {
	return &domain.Refund{
		RefundID:     lookupString(payload, refundMapping["refund_id"]),
		OrderID:      lookupString(payload, refundMapping["order_id"]),
		PaymentID:    lookupString(payload, refundMapping["payment_id"]),
		Vendor:       n.vendor(raw, payload),
		RefundAmount: lookupFloat(payload, refundMapping["amount"]),
		RefundReason: lookupString(payload, refundMapping["reason"]),
		RefundType:   lookupString(payload, refundMapping["type"]),
		RefundDate:   lookupTime(payload, refundMapping["date"]),
		EventID:      raw.EventID,
	}
}

// normalizeStatus folds the vendor vocabulary into {success, failed}.
// Unrecognized values are preserved verbatim and flagged.
func (n *Normalizer) normalizeStatus(raw string, key string, res *Result) string {
	if raw == "" {
		return ""
	}
	lowered := strings.ToLower(raw)
	if canonical, ok := statusVocabulary[lowered]; ok {
		return canonical
	}
	res.Issues = append(res.Issues, domain.Issue{Check: domain.CheckUnknownPaymentStatus, Key: key})
	return raw
}

// vendor prefers the payload, then the envelope tag, then the sentinel.
func (n *Normalizer) vendor(raw *domain.RawEvent, payload map[string]interface{}) string {
	if v := domain.ExtractVendor(payload); v != domain.UnknownVendor {
		return v
	}
	if raw.Vendor != "" && raw.Vendor != domain.UnknownVendor {
		return raw.Vendor
	}
	return n.unknownVendor
}

func (n *Normalizer) checkRequired(kind domain.EntityKind, payload map[string]interface{}, res *Result) {
	for _, field := range requiredFields[kind] {
		var mapping map[string][]string
		switch kind {
		case domain.KindOrder:
			mapping = orderMapping
		case domain.KindPayment:
			mapping = paymentMapping
		case domain.KindRefund:
			mapping = refundMapping
		}
		if lookupString(payload, mapping[field]) == "" {
			res.Issues = append(res.Issues, domain.Issue{
				Check: domain.CheckMissingRequiredField,
				Key:   string(kind) + "." + field,
			})
		}
	}
}
