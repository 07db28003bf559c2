package etl

import (
	"encoding/json"
	"fmt"
)

// Module tags as delivered by the gateway. "ln" is the first lightning
// generation, "lnv2" the second.
const (
	moduleLNv1 = "ln"
	moduleLNv2 = "lnv2"
)

type dispatchKey struct {
	module string
	kind   string
}

type decodeFunc func(p fields) (record, error)

// decoders is the single dispatch table keyed by (module, kind). Both
// generations share kind names; their payload shapes differ.
var decoders = map[dispatchKey]decodeFunc{
	{moduleLNv1, "outgoing-payment-started"}:             decodeLNv1OutgoingPaymentStarted,
	{moduleLNv1, "outgoing-payment-succeeded"}:           decodeLNv1OutgoingPaymentSucceeded,
	{moduleLNv1, "outgoing-payment-failed"}:              decodeLNv1OutgoingPaymentFailed,
	{moduleLNv1, "incoming-payment-started"}:             decodeLNv1IncomingPaymentStarted,
	{moduleLNv1, "incoming-payment-succeeded"}:           decodeLNv1IncomingPaymentSucceeded,
	{moduleLNv1, "incoming-payment-failed"}:              decodeLNv1IncomingPaymentFailed,
	{moduleLNv1, "complete-lightning-payment-succeeded"}: decodeLNv1CompleteLightningPaymentSucceeded,
	{moduleLNv2, "outgoing-payment-started"}:             decodeLNv2OutgoingPaymentStarted,
	{moduleLNv2, "outgoing-payment-succeeded"}:           decodeLNv2OutgoingPaymentSucceeded,
	{moduleLNv2, "outgoing-payment-failed"}:              decodeLNv2OutgoingPaymentFailed,
	{moduleLNv2, "incoming-payment-started"}:             decodeLNv2IncomingPaymentStarted,
	{moduleLNv2, "incoming-payment-succeeded"}:           decodeLNv2IncomingPaymentSucceeded,
	{moduleLNv2, "incoming-payment-failed"}:              decodeLNv2IncomingPaymentFailed,
	{moduleLNv2, "complete-lightning-payment-succeeded"}: decodeLNv2CompleteLightningPaymentSucceeded,
}

func knownModule(module string) bool {
	return module == moduleLNv1 || module == moduleLNv2
}

// decodeEvent looks up and runs the decoder for a (module, kind) pair. The
// second return value reports whether the pair is handled at all.
func decodeEvent(module, kind string, payload json.RawMessage) (record, bool, error) {
	decode, ok := decoders[dispatchKey{module: module, kind: kind}]
	if !ok {
		return nil, false, nil
	}

	p, err := parsePayload(payload)
	if err != nil {
		return nil, true, err
	}

	rec, err := decode(p)
	if err != nil {
		return nil, true, fmt.Errorf("decode %s/%s: %w", module, kind, err)
	}
	return rec, true, nil
}

func decodeLNv1OutgoingPaymentStarted(p fields) (record, error) {
	contractID, err := p.str("contract_id")
	if err != nil {
		return nil, err
	}
	operationID, err := p.str("operation_id")
	if err != nil {
		return nil, err
	}
	invoiceAmount, err := p.amount("invoice_amount")
	if err != nil {
		return nil, err
	}
	return &LNv1OutgoingPaymentStarted{
		ContractID:    contractID,
		InvoiceAmount: invoiceAmount,
		OperationID:   operationID,
	}, nil
}

// lnv1OutgoingContract pulls the inlined contract fields shared by the V1
// outgoing succeeded/failed payloads.
func lnv1OutgoingContract(p fields) (contractID string, amount int64, gatewayKey, paymentHash string, timelock int64, userKey string, err error) {
	if contractID, err = p.str("contract_id"); err != nil {
		return
	}
	if amount, err = p.amount("outgoing_contract", "amount"); err != nil {
		return
	}
	if gatewayKey, err = p.str("outgoing_contract", "contract", "gateway_key"); err != nil {
		return
	}
	if paymentHash, err = p.str("outgoing_contract", "contract", "hash"); err != nil {
		return
	}
	if timelock, err = p.amount("outgoing_contract", "contract", "timelock"); err != nil {
		return
	}
	userKey, err = p.str("outgoing_contract", "contract", "user_key")
	return
}

func decodeLNv1OutgoingPaymentSucceeded(p fields) (record, error) {
	contractID, amount, gatewayKey, paymentHash, timelock, userKey, err := lnv1OutgoingContract(p)
	if err != nil {
		return nil, err
	}
	preimage, err := p.str("preimage")
	if err != nil {
		return nil, err
	}
	return &LNv1OutgoingPaymentSucceeded{
		ContractID:     contractID,
		ContractAmount: amount,
		GatewayKey:     gatewayKey,
		PaymentHash:    paymentHash,
		Timelock:       timelock,
		UserKey:        userKey,
		Preimage:       preimage,
	}, nil
}

func decodeLNv1OutgoingPaymentFailed(p fields) (record, error) {
	contractID, amount, gatewayKey, paymentHash, timelock, userKey, err := lnv1OutgoingContract(p)
	if err != nil {
		return nil, err
	}
	return &LNv1OutgoingPaymentFailed{
		ContractID:     contractID,
		ContractAmount: amount,
		GatewayKey:     gatewayKey,
		PaymentHash:    paymentHash,
		Timelock:       timelock,
		UserKey:        userKey,
		ErrorReason:    extractErrorReason(p),
	}, nil
}

func decodeLNv1IncomingPaymentStarted(p fields) (record, error) {
	contractID, err := p.str("contract_id")
	if err != nil {
		return nil, err
	}
	contractAmount, err := p.amount("contract_amount")
	if err != nil {
		return nil, err
	}
	invoiceAmount, err := p.amount("invoice_amount")
	if err != nil {
		return nil, err
	}
	operationID, err := p.str("operation_id")
	if err != nil {
		return nil, err
	}
	paymentHash, err := p.str("payment_hash")
	if err != nil {
		return nil, err
	}
	return &LNv1IncomingPaymentStarted{
		ContractID:     contractID,
		ContractAmount: contractAmount,
		InvoiceAmount:  invoiceAmount,
		OperationID:    operationID,
		PaymentHash:    paymentHash,
	}, nil
}

func decodeLNv1IncomingPaymentSucceeded(p fields) (record, error) {
	paymentHash, err := p.str("payment_hash")
	if err != nil {
		return nil, err
	}
	preimage, err := p.str("preimage")
	if err != nil {
		return nil, err
	}
	return &LNv1IncomingPaymentSucceeded{PaymentHash: paymentHash, Preimage: preimage}, nil
}

func decodeLNv1IncomingPaymentFailed(p fields) (record, error) {
	paymentHash, err := p.str("payment_hash")
	if err != nil {
		return nil, err
	}
	errText, err := p.str("error")
	if err != nil {
		return nil, err
	}
	return &LNv1IncomingPaymentFailed{PaymentHash: paymentHash, Error: errText}, nil
}

func decodeLNv1CompleteLightningPaymentSucceeded(p fields) (record, error) {
	paymentHash, err := p.str("payment_hash")
	if err != nil {
		return nil, err
	}
	return &LNv1CompleteLightningPaymentSucceeded{PaymentHash: paymentHash}, nil
}

// lnv2OutgoingContract pulls the nested contract fields shared by the V2
// outgoing payloads.
func lnv2OutgoingContract(p fields) (amount int64, paymentImage, claimPK, refundPK string, expiration int64, err error) {
	if amount, err = p.amount("outgoing_contract", "amount"); err != nil {
		return
	}
	if paymentImage, err = p.str("outgoing_contract", "contract", "payment_image"); err != nil {
		return
	}
	if claimPK, err = p.str("outgoing_contract", "contract", "claim_pk"); err != nil {
		return
	}
	if refundPK, err = p.str("outgoing_contract", "contract", "refund_pk"); err != nil {
		return
	}
	expiration, err = p.amount("outgoing_contract", "contract", "expiration")
	return
}

func decodeLNv2OutgoingPaymentStarted(p fields) (record, error) {
	operationID, err := p.str("operation_id")
	if err != nil {
		return nil, err
	}
	invoiceAmount, err := p.amount("invoice_amount")
	if err != nil {
		return nil, err
	}
	amount, paymentImage, claimPK, refundPK, expiration, err := lnv2OutgoingContract(p)
	if err != nil {
		return nil, err
	}
	return &LNv2OutgoingPaymentStarted{
		OperationID:    operationID,
		InvoiceAmount:  invoiceAmount,
		ContractAmount: amount,
		PaymentImage:   paymentImage,
		ClaimPK:        claimPK,
		RefundPK:       refundPK,
		Expiration:     expiration,
	}, nil
}

func decodeLNv2OutgoingPaymentSucceeded(p fields) (record, error) {
	amount, paymentImage, claimPK, refundPK, expiration, err := lnv2OutgoingContract(p)
	if err != nil {
		return nil, err
	}
	preimage, err := p.str("preimage")
	if err != nil {
		return nil, err
	}
	return &LNv2OutgoingPaymentSucceeded{
		ContractAmount: amount,
		PaymentImage:   paymentImage,
		ClaimPK:        claimPK,
		RefundPK:       refundPK,
		Expiration:     expiration,
		Preimage:       preimage,
	}, nil
}

func decodeLNv2OutgoingPaymentFailed(p fields) (record, error) {
	amount, paymentImage, claimPK, refundPK, expiration, err := lnv2OutgoingContract(p)
	if err != nil {
		return nil, err
	}
	return &LNv2OutgoingPaymentFailed{
		ContractAmount: amount,
		PaymentImage:   paymentImage,
		ClaimPK:        claimPK,
		RefundPK:       refundPK,
		Expiration:     expiration,
		ErrorReason:    extractErrorReason(p),
	}, nil
}

func decodeLNv2IncomingPaymentStarted(p fields) (record, error) {
	contractAmount, err := p.amount("contract_amount")
	if err != nil {
		return nil, err
	}
	invoiceAmount, err := p.amount("invoice_amount")
	if err != nil {
		return nil, err
	}
	operationID, err := p.str("operation_id")
	if err != nil {
		return nil, err
	}
	paymentImage, err := p.str("payment_image")
	if err != nil {
		return nil, err
	}
	return &LNv2IncomingPaymentStarted{
		ContractAmount: contractAmount,
		InvoiceAmount:  invoiceAmount,
		OperationID:    operationID,
		PaymentImage:   paymentImage,
	}, nil
}

func decodeLNv2IncomingPaymentSucceeded(p fields) (record, error) {
	paymentImage, err := p.str("payment_image")
	if err != nil {
		return nil, err
	}
	preimage, err := p.str("preimage")
	if err != nil {
		return nil, err
	}
	return &LNv2IncomingPaymentSucceeded{PaymentImage: paymentImage, Preimage: preimage}, nil
}

func decodeLNv2IncomingPaymentFailed(p fields) (record, error) {
	paymentImage, err := p.str("payment_image")
	if err != nil {
		return nil, err
	}
	errText, err := p.str("error")
	if err != nil {
		return nil, err
	}
	return &LNv2IncomingPaymentFailed{PaymentImage: paymentImage, Error: errText}, nil
}

func decodeLNv2CompleteLightningPaymentSucceeded(p fields) (record, error) {
	paymentImage, err := p.str("payment_image")
	if err != nil {
		return nil, err
	}
	return &LNv2CompleteLightningPaymentSucceeded{PaymentImage: paymentImage}, nil
}

// extractErrorReason surfaces a human-readable failure reason from the
// outgoing-failed error union. Only two shapes are understood; anything else
// degrades to "no reason available" (nil) rather than a decode failure.
func extractErrorReason(p fields) *string {
	if val, ok := p.lookup("error", "error_type", "LightningPayError", "lightning_error", "FailedPayment", "failure_reason"); ok {
		reason, _ := val.(string)
		return &reason
	}

	if val, ok := p.lookup("error", "error_type", "InvalidOutgoingContract", "error", "InvoiceExpired"); ok {
		var epoch int64
		if num, isNum := val.(json.Number); isNum {
			epoch, _ = num.Int64()
		}
		reason := fmt.Sprintf("Invoice expired: %d", epoch)
		return &reason
	}

	return nil
}
