package layouts

import "github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"

// Armas は AR Invoice Master File のレイアウトです。
func Armas() fixedwidth.RecordLayout {
	return fixedwidth.RecordLayout{
		Name:         "ARMAS",
		Description:  "AR Invoice Master File",
		RecordLength: 266,
		Fields: []fixedwidth.FieldSpec{
			fixedwidth.Decimal("AMINVN", 9, 0, "invoice_number"),
			fixedwidth.Decimal("AMCUST", 6, 0, "customer_id"),
			fixedwidth.Date("AMINVD", "invoice_date"),
			fixedwidth.Date("AMDUED", "due_date"),
			fixedwidth.Date("AMSHPD", "ship_date"),
			fixedwidth.Text("AMPONM", 20, "po_number"),
			fixedwidth.Text("AMREF1", 30, "reference1"),
			fixedwidth.Text("AMREF2", 30, "reference2"),
			fixedwidth.Decimal("AMINVA", 14, 2, "invoice_amount"),
			fixedwidth.Decimal("AMTAXA", 12, 2, "tax_amount"),
			fixedwidth.Decimal("AMFRTA", 12, 2, "freight_amount"),
			fixedwidth.Decimal("AMDISA", 12, 2, "discount_amount"),
			fixedwidth.Decimal("AMPAID", 14, 2, "amount_paid"),
			fixedwidth.Decimal("AMCURB", 14, 2, "current_balance"),
			fixedwidth.Text("AMSTAT", 2, "status"),
			fixedwidth.Text("AMHOLD", 1, "hold_flag"),
			fixedwidth.Text("AMDISP", 1, "dispute_flag"),
			fixedwidth.Text("AMDRSN", 3, "dispute_reason"),
			fixedwidth.Decimal("AMTERM", 3, 0, "payment_terms"),
			fixedwidth.Text("AMTYPE", 2, "document_type"),
			fixedwidth.Text("AMDIVN", 3, "division"),
			fixedwidth.Text("AMGLAC", 10, "gl_account"),
			fixedwidth.Date("AMGLDT", "gl_post_date"),
			fixedwidth.Text("AMGLFL", 1, "gl_posted_flag"),
			fixedwidth.Date("AMCDAT", "created_date"),
			fixedwidth.Date("AMUDAT", "updated_date"),
			fixedwidth.Time("AMUTIM", "updated_time"),
			fixedwidth.Text("AMUUSR", 10, "updated_by"),
			fixedwidth.Decimal("AMBESSION", 9, 0, "batch_session"),
		},
	}
}
