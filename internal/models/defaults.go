package models

// Sentinel values substituted for missing source data.
const (
	AccountUnspecified = "Sąskaita nenurodyta"
	AccountNotFound    = "Sąskaita nerasta"
	NameUnspecified    = "Nenurodytas"
	PurposeUnspecified = "Be paskirties"
)

// Defaults is the single {field: default} table every normalizer applies.
var Defaults = map[Field]string{
	FieldAccount:             AccountUnspecified,
	FieldCounterparty:        NameUnspecified,
	FieldCounterpartyAccount: AccountUnspecified,
	FieldPurpose:             PurposeUnspecified,
}

// ApplyDefaults fills every empty text field from Defaults.
func ApplyDefaults(t *Transaction) {
	if t.Account == "" {
		t.Account = Defaults[FieldAccount]
	}
	if t.Counterparty == "" {
		t.Counterparty = Defaults[FieldCounterparty]
	}
	if t.CounterpartyAccount == "" {
		t.CounterpartyAccount = Defaults[FieldCounterpartyAccount]
	}
	if t.Purpose == "" {
		t.Purpose = Defaults[FieldPurpose]
	}
}

// Output workbook vocabulary.
const (
	SheetIncome  = "Pajamos"
	SheetExpense = "Išlaidos"
	SheetSummary = "Bendra"

	LabelOwnAccount     = "ASMENS SĄSKAITA"
	LabelPayer          = "MOKĖTOJAS"
	LabelPayerAccount   = "MOKĖTOJO SĄSKAITA"
	LabelPayee          = "GAVĖJAS"
	LabelPayeeAccount   = "GAVĖJO SĄSKAITA"
	LabelPurpose        = "MOKĖJIMO PASKIRTIS"
	LabelTotal          = "Viso"
	LabelGrossIncome    = "Bendros Pajamos"
	LabelGrossExpense   = "Bendros Išlaidos"
	DefaultOutputPrefix = "Apdoroti_Israsai"
	WorkbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	WorkbookExtension   = ".xlsx"
)
