package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransactionType_NormalizesWithdrawalSpellings(t *testing.T) {
	for _, raw := range []string{"withdrawal", "withdrawl", "withdraw", "WITHDRAWAL", " Withdrawl "} {
		typ, err := ParseTransactionType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, TxWithdrawal, typ, raw)
	}
}

func TestParseTransactionType_RejectsUnknown(t *testing.T) {
	_, err := ParseTransactionType("chargeback")
	assert.ErrorIs(t, err, ErrInvalidTransactionType)
}

func TestIntrinsicDirection(t *testing.T) {
	cases := []struct {
		typ TransactionType
		dir Direction
		ok  bool
	}{
		{TxDeposit, DirectionCredit, true},
		{TxCredit, DirectionCredit, true},
		{TxWithdrawal, DirectionDebit, true},
		{TxPayment, DirectionDebit, true},
		{TxTransfer, "", false},
		{TxForeign, "", false},
	}
	for _, tc := range cases {
		dir, ok := tc.typ.IntrinsicDirection()
		assert.Equal(t, tc.ok, ok, tc.typ)
		assert.Equal(t, tc.dir, dir, tc.typ)
	}
}

func TestSignedAmount(t *testing.T) {
	debit := Transaction{Direction: DirectionDebit, AmountKobo: 5000}
	credit := Transaction{Direction: DirectionCredit, AmountKobo: 5000}
	assert.Equal(t, int64(-5000), debit.SignedAmount())
	assert.Equal(t, int64(5000), credit.SignedAmount())
}

func TestParseAccountType(t *testing.T) {
	for _, raw := range []string{"savings", "current", "fixed", "domiciliary", "salary"} {
		_, err := ParseAccountType(raw)
		assert.NoError(t, err, raw)
	}
	_, err := ParseAccountType("checking")
	assert.ErrorIs(t, err, ErrInvalidAccountType)
}

func TestValidateAccountNumber(t *testing.T) {
	assert.NoError(t, ValidateAccountNumber("0123456789"))
	assert.ErrorIs(t, ValidateAccountNumber("123456789"), ErrInvalidAccountNumber)
	assert.ErrorIs(t, ValidateAccountNumber("12345678901"), ErrInvalidAccountNumber)
	assert.ErrorIs(t, ValidateAccountNumber("12345678a9"), ErrInvalidAccountNumber)
}

func TestParseCardType(t *testing.T) {
	for _, raw := range []string{"mastercard", "visa", "verve", "giftcard"} {
		_, err := ParseCardType(raw)
		assert.NoError(t, err, raw)
	}
	_, err := ParseCardType("amex")
	assert.ErrorIs(t, err, ErrInvalidCardType)
}

func TestCustomerPatch_TouchesIdentity(t *testing.T) {
	addr := "12 Marina Road, Lagos"
	email := "new@example.com"

	assert.False(t, CustomerPatch{Address: &addr}.TouchesIdentity())
	assert.True(t, CustomerPatch{Email: &email}.TouchesIdentity())
	assert.True(t, CustomerPatch{Address: &addr, Email: &email}.TouchesIdentity())
}
