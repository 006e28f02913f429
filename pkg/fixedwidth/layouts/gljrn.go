package layouts

import "github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"

// Gljrn は GL Journal Entry File のレイアウトです。
func Gljrn() fixedwidth.RecordLayout {
	return fixedwidth.RecordLayout{
		Name:         "GLJRN",
		Description:  "GL Journal Entry File",
		RecordLength: 210,
		Fields: []fixedwidth.FieldSpec{
			fixedwidth.Decimal("GLJRNID", 10, 0, "journal_id"),
			fixedwidth.Decimal("GLJRNLN", 5, 0, "line_number"),
			fixedwidth.Date("GLPOST", "post_date"),
			fixedwidth.Decimal("GLPERD", 6, 0, "period"),
			fixedwidth.Decimal("GLFYEAR", 4, 0, "fiscal_year"),
			fixedwidth.Text("GLACCT", 10, "gl_account"),
			fixedwidth.Text("GLDEPT", 4, "department"),
			fixedwidth.Text("GLPROJ", 6, "project"),
			fixedwidth.Decimal("GLDRAM", 16, 2, "debit_amount"),
			fixedwidth.Decimal("GLCRAM", 16, 2, "credit_amount"),
			fixedwidth.Text("GLDESC", 50, "description"),
			fixedwidth.Text("GLREF", 20, "reference"),
			fixedwidth.Text("GLSRC", 2, "source"),
			fixedwidth.Text("GLDOCTY", 3, "document_type"),
			fixedwidth.Text("GLSTAT", 1, "status"),
			fixedwidth.Text("GLRVFL", 1, "reversal_flag"),
			fixedwidth.Decimal("GLRVJN", 10, 0, "reversal_journal"),
			fixedwidth.Date("GLCDAT", "created_date"),
			fixedwidth.Date("GLUCDAT", "updated_date"),
			fixedwidth.Time("GLUCTIM", "updated_time"),
			fixedwidth.Text("GLUCUSR", 10, "updated_by"),
			fixedwidth.Decimal("GLBESSION", 9, 0, "batch_session"),
		},
	}
}
