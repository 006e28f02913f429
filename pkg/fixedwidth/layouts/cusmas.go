package layouts

import "github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"

// Cusmas は Customer Master File のレイアウトです。
func Cusmas() fixedwidth.RecordLayout {
	return fixedwidth.RecordLayout{
		Name:         "CUSMAS",
		Description:  "Customer Master File",
		RecordLength: 323,
		Fields: []fixedwidth.FieldSpec{
			fixedwidth.Decimal("CMCUST", 6, 0, "customer_id"),
			fixedwidth.Text("CMNAME", 40, "customer_name"),
			fixedwidth.Text("CMCONT", 30, "contact_name"),
			fixedwidth.Text("CMADR1", 40, "address_line1"),
			fixedwidth.Text("CMADR2", 40, "address_line2"),
			fixedwidth.Text("CMCITY", 25, "city"),
			fixedwidth.Text("CMSTAT", 2, "state"),
			fixedwidth.Text("CMZIPC", 10, "zip_code"),
			fixedwidth.Decimal("CMPHON", 10, 0, "phone"),
			fixedwidth.Text("CMEMAL", 50, "email"),
			fixedwidth.Text("CMREGN", 2, "region"),
			fixedwidth.Text("CMINDS", 3, "industry_code"),
			fixedwidth.Text("CMSEGM", 1, "segment"),
			fixedwidth.Text("CMTYPE", 1, "customer_type"),
			fixedwidth.Decimal("CMCRLT", 14, 2, "credit_limit"),
			fixedwidth.Decimal("CMCRUS", 14, 2, "credit_used"),
			fixedwidth.Decimal("CMPMTM", 3, 0, "payment_terms"),
			fixedwidth.Text("CMCRST", 1, "credit_status"),
			fixedwidth.Text("CMSTAT2", 1, "account_status"),
			fixedwidth.Date("CMCDAT", "created_date"),
			fixedwidth.Date("CMUDAT", "updated_date"),
			fixedwidth.Time("CMUTIM", "updated_time"),
			fixedwidth.Text("CMUUSR", 10, "updated_by"),
		},
	}
}
