package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

func digest(secret []byte, intentID, transactionID string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(intentID))
	mac.Write([]byte{'|'})
	mac.Write([]byte(transactionID))
	return mac.Sum(nil)
}

// Sign computes the hex HMAC-SHA256 of "intentID|transactionID" under the
// webhook secret. The processor is configured with the same secret and
// signs every success callback this way.
func Sign(secret []byte, intentID, transactionID string) string {
	return hex.EncodeToString(digest(secret, intentID, transactionID))
}

// VerifySignature checks a callback signature in constant time.
func VerifySignature(secret []byte, cb Callback) bool {
	got, err := hex.DecodeString(cb.Signature)
	if err != nil {
		return false
	}
	return hmac.Equal(got, digest(secret, cb.IntentID, cb.TransactionID))
}
