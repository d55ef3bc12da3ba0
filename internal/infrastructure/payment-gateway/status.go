package paymentgateway

import (
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/domain"
	"github.com/rs/zerolog/log"
)

const successCode = "00"

var responseCodes = map[string]string{
	"00": "Transaction successful",
	"07": "Amount deducted, transaction flagged as suspicious",
	"09": "Card or account not registered for internet banking",
	"10": "Card or account verification failed more than 3 times",
	"11": "Payment window expired",
	"12": "Card or account is locked",
	"13": "Wrong one-time password",
	"24": "Customer cancelled the transaction",
	"51": "Insufficient balance",
	"65": "Daily transaction limit exceeded",
	"75": "Issuing bank under maintenance",
	"79": "Wrong payment password too many times",
	"99": "Other error",
}

var transactionStatuses = map[string]string{
	"00": "Transaction successful",
	"01": "Transaction not completed",
	"02": "Transaction error",
	"04": "Reversed transaction",
	"05": "Refund in progress",
	"06": "Refund sent to bank",
	"07": "Transaction suspected of fraud",
	"09": "Refund rejected",
}

// MapStatus is total: both codes "00" is SUCCESS, any other pair of codes found
// in the provider tables is FAILED, and everything else (missing, malformed or
// never documented) is UNKNOWN.
func MapStatus(responseCode, transactionStatus string) domain.TransactionOutcome {
	_, knownResponse := responseCodes[responseCode]
	_, knownStatus := transactionStatuses[transactionStatus]

	if !knownResponse || !knownStatus {
		log.Warn().
			Str("component", "MapStatus").
			Str("response_code", responseCode).
			Str("transaction_status", transactionStatus).
			Msg("unrecognized provider status codes")
		return domain.OutcomeUnknown
	}

	if responseCode == successCode && transactionStatus == successCode {
		return domain.OutcomeSuccess
	}

	return domain.OutcomeFailed
}

// DescribeResponseCode returns the provider's description for logs.
func DescribeResponseCode(responseCode string) string {
	if desc, ok := responseCodes[responseCode]; ok {
		return desc
	}
	return "Unrecognized response code"
}
