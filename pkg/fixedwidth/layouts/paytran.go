package layouts

import "github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"

// Paytran は Payment Transaction File のレイアウトです。
func Paytran() fixedwidth.RecordLayout {
	return fixedwidth.RecordLayout{
		Name:         "PAYTRAN",
		Description:  "Payment Transaction File",
		RecordLength: 221,
		Fields: []fixedwidth.FieldSpec{
			fixedwidth.Decimal("PTPAYID", 9, 0, "payment_id"),
			fixedwidth.Decimal("PTCUST", 6, 0, "customer_id"),
			fixedwidth.Date("PTPAYDT", "payment_date"),
			fixedwidth.Decimal("PTPAYAM", 14, 2, "payment_amount"),
			fixedwidth.Text("PTPAYMTH", 2, "payment_method"),
			fixedwidth.Text("PTCKNUM", 15, "check_number"),
			fixedwidth.Text("PTBNKRF", 25, "bank_reference"),
			fixedwidth.Text("PTREMIT", 40, "remittance_name"),
			fixedwidth.Decimal("PTINVRF", 9, 0, "invoice_reference"),
			fixedwidth.Text("PTAPFLG", 1, "applied_flag"),
			fixedwidth.Date("PTAPDAT", "applied_date"),
			fixedwidth.Decimal("PTAPAMT", 14, 2, "applied_amount"),
			fixedwidth.Decimal("PTUNAPP", 14, 2, "unapplied_amount"),
			fixedwidth.Text("PTTYPE", 2, "payment_type"),
			fixedwidth.Text("PTSTAT", 2, "status"),
			fixedwidth.Decimal("PTBESSION", 9, 0, "batch_session"),
			fixedwidth.Text("PTBATCH", 15, "batch_id"),
			fixedwidth.Date("PTCDAT", "created_date"),
			fixedwidth.Date("PTUDAT", "updated_date"),
			fixedwidth.Time("PTUTIM", "updated_time"),
			fixedwidth.Text("PTUUSR", 10, "updated_by"),
		},
	}
}
