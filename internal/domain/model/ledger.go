package model

import "time"

// EntryKind — вид записи учётного журнала.
type EntryKind string

// Виды записей журнала.
const (
	EntryExamSale      EntryKind = "exam_sale"
	EntryDeposit       EntryKind = "deposit"
	EntryDepositReturn EntryKind = "deposit_return"
	EntryDonation      EntryKind = "donation"
	EntryErroneousSale EntryKind = "erroneous_sale"
)

// Operator — идентичность оператора кассы, полученная из токена.
type Operator struct {
	// Username — preferred_username из JWT
	Username string
	// FirstName, LastName — given_name и family_name
	FirstName string
	LastName  string
}

// FullName возвращает "Имя Фамилия" или username, если имя не задано.
func (o Operator) FullName() string {
	switch {
	case o.FirstName != "" && o.LastName != "":
		return o.FirstName + " " + o.LastName
	case o.FirstName != "":
		return o.FirstName
	case o.LastName != "":
		return o.LastName
	default:
		return o.Username
	}
}

// LedgerEntry — неизменяемая запись учётного журнала (таблица accounting_entries).
// Amount знаковый: поступления положительны, выплаты отрицательны.
type LedgerEntry struct {
	ID     int64
	Kind   EntryKind
	Amount int
	// Pages — количество страниц (только exam_sale)
	Pages *int
	// DepositID, DepositName — данные залога (deposit, deposit_return)
	DepositID   *int64
	DepositName *string
	Operator    string
	CashBox     string
	CreatedAt   time.Time
}
