package coordinator

import "errors"

// ErrSignatureUnavailable is returned by ReceiptSignature when no receipt
// carried a non-empty SuccessValue (§7 SignatureUnavailable).
var ErrSignatureUnavailable = errors.New("coordinator: no signature in execution receipt")
