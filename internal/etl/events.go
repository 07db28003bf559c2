package etl

// counter identifies the per-run tally bucket an event belongs to. The
// buckets are shared across protocol generations: an LNv1 and an LNv2
// outgoing-payment-succeeded both land in the same bucket.
type counter int

const (
	counterOutgoingStarted counter = iota
	counterOutgoingSucceeded
	counterOutgoingFailed
	counterIncomingStarted
	counterIncomingSucceeded
	counterIncomingFailed
	counterCompleteLightningPayment
	counterBuckets
)

// tally holds the per-run event counts for one federation.
type tally [counterBuckets]uint64

func (t *tally) inc(c counter) {
	t[c]++
}

func (t *tally) add(other tally) {
	for i := range t {
		t[i] += other[i]
	}
}

func (t tally) total() uint64 {
	var sum uint64
	for _, n := range t {
		sum += n
	}
	return sum
}

// record is a decoded, typed payment event ready for insertion. Each record
// maps to exactly one warehouse table; columns and values exclude the common
// context columns (log_id, ts, federation identity, epoch), which the insert
// adapter supplies.
type record interface {
	table() string
	columns() []string
	values() []any
	bucket() counter
}

// LNv1 events carry the older generation's inlined contract fields.

type LNv1OutgoingPaymentStarted struct {
	ContractID    string
	InvoiceAmount int64
	OperationID   string
}

func (e *LNv1OutgoingPaymentStarted) table() string { return "lnv1_outgoing_payment_started" }
func (e *LNv1OutgoingPaymentStarted) columns() []string {
	return []string{"contract_id", "invoice_amount", "operation_id"}
}
func (e *LNv1OutgoingPaymentStarted) values() []any {
	return []any{e.ContractID, e.InvoiceAmount, e.OperationID}
}
func (e *LNv1OutgoingPaymentStarted) bucket() counter { return counterOutgoingStarted }

type LNv1OutgoingPaymentSucceeded struct {
	ContractID     string
	ContractAmount int64
	GatewayKey     string
	PaymentHash    string
	Timelock       int64
	UserKey        string
	Preimage       string
}

func (e *LNv1OutgoingPaymentSucceeded) table() string { return "lnv1_outgoing_payment_succeeded" }
func (e *LNv1OutgoingPaymentSucceeded) columns() []string {
	return []string{"contract_id", "contract_amount", "gateway_key", "payment_hash", "timelock", "user_key", "preimage"}
}
func (e *LNv1OutgoingPaymentSucceeded) values() []any {
	return []any{e.ContractID, e.ContractAmount, e.GatewayKey, e.PaymentHash, e.Timelock, e.UserKey, e.Preimage}
}
func (e *LNv1OutgoingPaymentSucceeded) bucket() counter { return counterOutgoingSucceeded }

type LNv1OutgoingPaymentFailed struct {
	ContractID     string
	ContractAmount int64
	GatewayKey     string
	PaymentHash    string
	Timelock       int64
	UserKey        string
	ErrorReason    *string
}

func (e *LNv1OutgoingPaymentFailed) table() string { return "lnv1_outgoing_payment_failed" }
func (e *LNv1OutgoingPaymentFailed) columns() []string {
	return []string{"contract_id", "contract_amount", "gateway_key", "payment_hash", "timelock", "user_key", "error_reason"}
}
func (e *LNv1OutgoingPaymentFailed) values() []any {
	return []any{e.ContractID, e.ContractAmount, e.GatewayKey, e.PaymentHash, e.Timelock, e.UserKey, e.ErrorReason}
}
func (e *LNv1OutgoingPaymentFailed) bucket() counter { return counterOutgoingFailed }

type LNv1IncomingPaymentStarted struct {
	ContractID     string
	ContractAmount int64
	InvoiceAmount  int64
	OperationID    string
	PaymentHash    string
}

func (e *LNv1IncomingPaymentStarted) table() string { return "lnv1_incoming_payment_started" }
func (e *LNv1IncomingPaymentStarted) columns() []string {
	return []string{"contract_id", "contract_amount", "invoice_amount", "operation_id", "payment_hash"}
}
func (e *LNv1IncomingPaymentStarted) values() []any {
	return []any{e.ContractID, e.ContractAmount, e.InvoiceAmount, e.OperationID, e.PaymentHash}
}
func (e *LNv1IncomingPaymentStarted) bucket() counter { return counterIncomingStarted }

type LNv1IncomingPaymentSucceeded struct {
	PaymentHash string
	Preimage    string
}

func (e *LNv1IncomingPaymentSucceeded) table() string { return "lnv1_incoming_payment_succeeded" }
func (e *LNv1IncomingPaymentSucceeded) columns() []string {
	return []string{"payment_hash", "preimage"}
}
func (e *LNv1IncomingPaymentSucceeded) values() []any {
	return []any{e.PaymentHash, e.Preimage}
}
func (e *LNv1IncomingPaymentSucceeded) bucket() counter { return counterIncomingSucceeded }

type LNv1IncomingPaymentFailed struct {
	PaymentHash string
	Error       string
}

func (e *LNv1IncomingPaymentFailed) table() string { return "lnv1_incoming_payment_failed" }
func (e *LNv1IncomingPaymentFailed) columns() []string {
	return []string{"payment_hash", "error_reason"}
}
func (e *LNv1IncomingPaymentFailed) values() []any {
	return []any{e.PaymentHash, e.Error}
}
func (e *LNv1IncomingPaymentFailed) bucket() counter { return counterIncomingFailed }

type LNv1CompleteLightningPaymentSucceeded struct {
	PaymentHash string
}

func (e *LNv1CompleteLightningPaymentSucceeded) table() string {
	return "lnv1_complete_lightning_payment_succeeded"
}
func (e *LNv1CompleteLightningPaymentSucceeded) columns() []string {
	return []string{"payment_hash"}
}
func (e *LNv1CompleteLightningPaymentSucceeded) values() []any {
	return []any{e.PaymentHash}
}
func (e *LNv1CompleteLightningPaymentSucceeded) bucket() counter {
	return counterCompleteLightningPayment
}

// LNv2 events nest the outgoing contract and identify payments by payment
// image instead of payment hash.

type LNv2OutgoingPaymentStarted struct {
	OperationID    string
	InvoiceAmount  int64
	ContractAmount int64
	PaymentImage   string
	ClaimPK        string
	RefundPK       string
	Expiration     int64
}

func (e *LNv2OutgoingPaymentStarted) table() string { return "lnv2_outgoing_payment_started" }
func (e *LNv2OutgoingPaymentStarted) columns() []string {
	return []string{"operation_id", "invoice_amount", "contract_amount", "payment_image", "claim_pk", "refund_pk", "expiration"}
}
func (e *LNv2OutgoingPaymentStarted) values() []any {
	return []any{e.OperationID, e.InvoiceAmount, e.ContractAmount, e.PaymentImage, e.ClaimPK, e.RefundPK, e.Expiration}
}
func (e *LNv2OutgoingPaymentStarted) bucket() counter { return counterOutgoingStarted }

type LNv2OutgoingPaymentSucceeded struct {
	ContractAmount int64
	PaymentImage   string
	ClaimPK        string
	RefundPK       string
	Expiration     int64
	Preimage       string
}

func (e *LNv2OutgoingPaymentSucceeded) table() string { return "lnv2_outgoing_payment_succeeded" }
func (e *LNv2OutgoingPaymentSucceeded) columns() []string {
	return []string{"contract_amount", "payment_image", "claim_pk", "refund_pk", "expiration", "preimage"}
}
func (e *LNv2OutgoingPaymentSucceeded) values() []any {
	return []any{e.ContractAmount, e.PaymentImage, e.ClaimPK, e.RefundPK, e.Expiration, e.Preimage}
}
func (e *LNv2OutgoingPaymentSucceeded) bucket() counter { return counterOutgoingSucceeded }

type LNv2OutgoingPaymentFailed struct {
	ContractAmount int64
	PaymentImage   string
	ClaimPK        string
	RefundPK       string
	Expiration     int64
	ErrorReason    *string
}

func (e *LNv2OutgoingPaymentFailed) table() string { return "lnv2_outgoing_payment_failed" }
func (e *LNv2OutgoingPaymentFailed) columns() []string {
	return []string{"contract_amount", "payment_image", "claim_pk", "refund_pk", "expiration", "error_reason"}
}
func (e *LNv2OutgoingPaymentFailed) values() []any {
	return []any{e.ContractAmount, e.PaymentImage, e.ClaimPK, e.RefundPK, e.Expiration, e.ErrorReason}
}
func (e *LNv2OutgoingPaymentFailed) bucket() counter { return counterOutgoingFailed }

type LNv2IncomingPaymentStarted struct {
	ContractAmount int64
	InvoiceAmount  int64
	OperationID    string
	PaymentImage   string
}

func (e *LNv2IncomingPaymentStarted) table() string { return "lnv2_incoming_payment_started" }
func (e *LNv2IncomingPaymentStarted) columns() []string {
	return []string{"contract_amount", "invoice_amount", "operation_id", "payment_image"}
}
func (e *LNv2IncomingPaymentStarted) values() []any {
	return []any{e.ContractAmount, e.InvoiceAmount, e.OperationID, e.PaymentImage}
}
func (e *LNv2IncomingPaymentStarted) bucket() counter { return counterIncomingStarted }

type LNv2IncomingPaymentSucceeded struct {
	PaymentImage string
	Preimage     string
}

func (e *LNv2IncomingPaymentSucceeded) table() string { return "lnv2_incoming_payment_succeeded" }
func (e *LNv2IncomingPaymentSucceeded) columns() []string {
	return []string{"payment_image", "preimage"}
}
func (e *LNv2IncomingPaymentSucceeded) values() []any {
	return []any{e.PaymentImage, e.Preimage}
}
func (e *LNv2IncomingPaymentSucceeded) bucket() counter { return counterIncomingSucceeded }

type LNv2IncomingPaymentFailed struct {
	PaymentImage string
	Error        string
}

func (e *LNv2IncomingPaymentFailed) table() string { return "lnv2_incoming_payment_failed" }
func (e *LNv2IncomingPaymentFailed) columns() []string {
	return []string{"payment_image", "error_reason"}
}
func (e *LNv2IncomingPaymentFailed) values() []any {
	return []any{e.PaymentImage, e.Error}
}
func (e *LNv2IncomingPaymentFailed) bucket() counter { return counterIncomingFailed }

type LNv2CompleteLightningPaymentSucceeded struct {
	PaymentImage string
}

func (e *LNv2CompleteLightningPaymentSucceeded) table() string {
	return "lnv2_complete_lightning_payment_succeeded"
}
func (e *LNv2CompleteLightningPaymentSucceeded) columns() []string {
	return []string{"payment_image"}
}
func (e *LNv2CompleteLightningPaymentSucceeded) values() []any {
	return []any{e.PaymentImage}
}
func (e *LNv2CompleteLightningPaymentSucceeded) bucket() counter {
	return counterCompleteLightningPayment
}
