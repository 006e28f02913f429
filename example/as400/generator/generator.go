// Package generator は売掛金システムの物理ファイル (CUSMAS / ARMAS / PAYTRAN / GLJRN) を模した
// 合成データを生成します。同じ Seed からは常に同じファイルが生成されます。
package generator

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
)

// Options は生成件数などの設定です。
type Options struct {
	Seed         int64
	Customers    int
	Invoices     int
	Payments     int
	JournalLines int // 0 以下は上限なし
	// MalformedRate は不正な行を混ぜる割合 (0.0 - 1.0) です。
	MalformedRate float64
}

// Result はファイルごとの出力件数です。
type Result struct {
	Files     map[string]string // レイアウト名 -> パス
	Records   map[string]int
	Malformed map[string]int
}

var (
	dataStart = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	dataEnd   = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	regions        = []string{"NE", "SE", "MW", "SW", "WE"}
	industries     = []string{"MFG", "HLT", "TEC", "RET", "CON", "TRN", "FIN", "PRO", "HOS", "ENR"}
	states         = []string{"NY", "NJ", "PA", "OH", "IL", "TX", "CA", "WA", "GA", "FL"}
	cities         = []string{"Springfield", "Riverside", "Franklin", "Greenville", "Madison", "Clinton", "Salem", "Fairview"}
	streets        = []string{"Main St", "Oak Ave", "Maple Dr", "Cedar Ln", "Park Blvd", "Lake Rd", "Hill St"}
	companyWords   = []string{"Acme", "Summit", "Pioneer", "Atlas", "Vertex", "Harbor", "Keystone", "Liberty", "Northwind", "Bluebird"}
	companySuffix  = []string{"INC", "LLC", "CORP", "CO", "GROUP"}
	firstNames     = []string{"James", "Mary", "Robert", "Linda", "Michael", "Susan", "David", "Karen"}
	lastNames      = []string{"Smith", "Johnson", "Brown", "Wilson", "Taylor", "Clark", "Lewis", "Walker"}
	users          = []string{"JSMITH", "MWILSON", "KJOHNSON", "PBROWN", "SYSTEM", "BATCH"}
	paymentMethods = []string{"CK", "AC", "WR", "CC"}
	disputeReasons = []string{"PRC", "NRC", "DMG", "WRG", "DUP"}
)

// segment は顧客区分ごとの与信枠と支払条件です。
type segment struct {
	code           string
	weight         float64
	minCredit      int
	maxCredit      int
	terms          []int
	minInv, maxInv float64
}

var segments = []segment{
	{"E", 0.10, 100000, 500000, []int{30, 45, 60}, 5000, 50000},
	{"M", 0.30, 25000, 100000, []int{30, 45}, 1000, 10000},
	{"S", 0.45, 5000, 25000, []int{15, 30}, 200, 2000},
	{"T", 0.15, 1000, 10000, []int{15, 30}, 100, 1000},
}

// Generator は合成データの生成器です。
type Generator struct {
	opts     Options
	rnd      *rand.Rand
	registry *fixedwidth.Registry
}

// New は新しい Generator を作成します。registry には 4 つのレイアウトが登録されている必要があります。
func New(registry *fixedwidth.Registry, opts Options) *Generator {
	return &Generator{
		opts:     opts,
		rnd:      rand.New(rand.NewSource(opts.Seed)),
		registry: registry,
	}
}

type customer struct {
	id      int
	name    string
	segment segment
	terms   int
	active  bool
	record  fixedwidth.Record
}

type invoice struct {
	number  int
	cust    *customer
	date    time.Time
	amount  decimal.Decimal
	tax     decimal.Decimal
	freight decimal.Decimal
	total   decimal.Decimal
	paid    decimal.Decimal
	session int
}

type payment struct {
	id      int
	date    time.Time
	amount  decimal.Decimal
	applied bool
	session int
}

// WriteAll は 4 つのファイルを dir に書き出します。
func (g *Generator) WriteAll(dir string) (Result, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, err
	}
	res := Result{Files: map[string]string{}, Records: map[string]int{}, Malformed: map[string]int{}}

	customers := g.customers()
	invoices := g.invoices(customers)
	payments, payRecords := g.payments(invoices)
	journal := g.journal(invoices, payments)

	custRecords := make([]fixedwidth.Record, len(customers))
	for i, c := range customers {
		custRecords[i] = c.record
	}
	invRecords := make([]fixedwidth.Record, len(invoices))
	for i, inv := range invoices {
		invRecords[i] = g.invoiceRecord(inv)
	}

	for _, out := range []struct {
		layout  string
		records []fixedwidth.Record
	}{
		{"CUSMAS", custRecords},
		{"ARMAS", invRecords},
		{"PAYTRAN", payRecords},
		{"GLJRN", journal},
	} {
		layout, err := g.registry.Get(out.layout)
		if err != nil {
			return res, err
		}
		path := filepath.Join(dir, layout.Name+".txt")
		malformed, err := g.writeFile(path, layout, out.records)
		if err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
		res.Files[layout.Name] = path
		res.Records[layout.Name] = len(out.records)
		res.Malformed[layout.Name] = malformed
		logger.Infof("%s に %d 件出力しました (不正行 %d 件)。", path, len(out.records), malformed)
	}
	return res, nil
}

// writeFile はレコードを CRLF 区切りで書き出し、MalformedRate に従って一部の行を壊します。
func (g *Generator) writeFile(path string, layout *fixedwidth.RecordLayout, records []fixedwidth.Record) (malformed int, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var sb strings.Builder
	for _, rec := range records {
		line, err := fixedwidth.EncodeRecord(layout, rec)
		if err != nil {
			return malformed, err
		}
		if g.opts.MalformedRate > 0 && g.rnd.Float64() < g.opts.MalformedRate {
			line = g.corrupt(layout, line)
			malformed++
		}
		sb.WriteString(line)
		sb.WriteString(fixedwidth.LineTerminator)
	}
	_, err = f.WriteString(sb.String())
	return malformed, err
}

// corrupt は実データで見られる壊れ方のいずれかを行に加えます。
func (g *Generator) corrupt(layout *fixedwidth.RecordLayout, line string) string {
	cols := layout.Columns()
	switch g.rnd.Intn(3) {
	case 0:
		// 先頭フィールドにも満たない切り詰められた行
		return line[:cols[0].Width-1]
	case 1:
		for _, c := range cols {
			if c.Kind == fixedwidth.KindDate {
				return line[:c.Start-1] + "1241399" + line[c.End:]
			}
		}
	}
	for _, c := range cols {
		if c.Kind == fixedwidth.KindScaledDecimal {
			return line[:c.Start-1] + strings.Repeat("X", c.Width) + line[c.End:]
		}
	}
	return line
}

func (g *Generator) customers() []*customer {
	out := make([]*customer, 0, g.opts.Customers)
	for i := 0; i < g.opts.Customers; i++ {
		seg := g.pickSegment()
		created := g.dateBetween(dataStart.AddDate(0, 0, -1000), dataStart)
		name := fmt.Sprintf("%s %s %s", g.pick(companyWords), g.pick(companyWords), g.pick(companySuffix))
		c := &customer{
			id:      100000 + i,
			name:    name,
			segment: seg,
			terms:   seg.terms[g.rnd.Intn(len(seg.terms))],
			active:  g.rnd.Float64() < 0.95,
		}
		addr2 := ""
		if g.rnd.Float64() > 0.7 {
			addr2 = fmt.Sprintf("Suite %d", 100+g.rnd.Intn(900))
		}
		accountStatus := "A"
		if !c.active {
			accountStatus = g.weighted([]string{"I", "C"}, []float64{0.8, 0.2})
		}
		c.record = fixedwidth.Record{
			"customer_id":    c.id,
			"customer_name":  name,
			"contact_name":   g.pick(firstNames) + " " + g.pick(lastNames),
			"address_line1":  fmt.Sprintf("%d %s", 1+g.rnd.Intn(9999), g.pick(streets)),
			"address_line2":  addr2,
			"city":           g.pick(cities),
			"state":          g.pick(states),
			"zip_code":       fmt.Sprintf("%05d", g.rnd.Intn(100000)),
			"phone":          2000000000 + g.rnd.Intn(7999999999),
			"email":          fmt.Sprintf("ap@%s.example.com", strings.ToLower(strings.ReplaceAll(name, " ", ""))),
			"region":         g.pick(regions),
			"industry_code":  g.pick(industries),
			"segment":        seg.code,
			"customer_type":  g.weighted([]string{"R", "G", "I"}, []float64{0.90, 0.07, 0.03}),
			"credit_limit":   seg.minCredit + g.rnd.Intn(seg.maxCredit-seg.minCredit+1),
			"credit_used":    0,
			"payment_terms":  c.terms,
			"credit_status":  g.weighted([]string{"A", "H", "S"}, []float64{0.90, 0.07, 0.03}),
			"account_status": accountStatus,
			"created_date":   created,
			"updated_date":   g.dateBetween(created, dataEnd),
			"updated_time":   g.clock(),
			"updated_by":     g.pick(users),
		}
		out = append(out, c)
	}
	return out
}

func (g *Generator) invoices(customers []*customer) []*invoice {
	var active []*customer
	for _, c := range customers {
		if c.active {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return nil
	}
	out := make([]*invoice, 0, g.opts.Invoices)
	for i := 0; i < g.opts.Invoices; i++ {
		c := active[g.rnd.Intn(len(active))]
		amount := g.money(c.segment.minInv, c.segment.maxInv)
		tax := amount.Mul(decimal.NewFromFloat(g.rnd.Float64() * 0.10)).Round(2)
		freight := decimal.Zero
		if g.rnd.Float64() > 0.7 {
			freight = g.money(0, 100)
		}
		inv := &invoice{
			number:  1000000 + i,
			cust:    c,
			date:    g.dateBetween(dataStart, dataEnd),
			amount:  amount,
			tax:     tax,
			freight: freight,
			total:   amount.Add(tax).Add(freight),
			session: 100000 + g.rnd.Intn(900000),
		}
		due := inv.date.AddDate(0, 0, c.terms)
		switch {
		case due.After(dataEnd):
		case g.rnd.Float64() < 0.65:
			inv.paid = inv.total
		case g.rnd.Float64() < 0.15:
			share := []float64{0.25, 0.5, 0.75}[g.rnd.Intn(3)]
			inv.paid = inv.total.Mul(decimal.NewFromFloat(share)).Round(2)
		}
		out = append(out, inv)
	}
	return out
}

func (g *Generator) invoiceRecord(inv *invoice) fixedwidth.Record {
	due := inv.date.AddDate(0, 0, inv.cust.terms)
	status := "OP"
	switch {
	case inv.paid.Equal(inv.total) && inv.paid.IsPositive():
		status = "PD"
	case inv.paid.IsPositive():
		status = "PP"
	case !due.After(dataEnd) && g.rnd.Float64() < 0.05:
		status = "DP"
	}
	dispute, reason := "N", ""
	if status == "DP" {
		dispute, reason = "Y", g.pick(disputeReasons)
	}
	po := ""
	if g.rnd.Float64() > 0.3 {
		po = fmt.Sprintf("PO-%d", 10000+g.rnd.Intn(90000))
	}
	return fixedwidth.Record{
		"invoice_number":  inv.number,
		"customer_id":     inv.cust.id,
		"invoice_date":    inv.date,
		"due_date":        due,
		"ship_date":       inv.date.AddDate(0, 0, -(1 + g.rnd.Intn(5))),
		"po_number":       po,
		"reference1":      "Net " + fmt.Sprint(inv.cust.terms) + " terms",
		"reference2":      "",
		"invoice_amount":  inv.amount,
		"tax_amount":      inv.tax,
		"freight_amount":  inv.freight,
		"discount_amount": decimal.Zero,
		"amount_paid":     inv.paid,
		"current_balance": inv.total.Sub(inv.paid),
		"status":          status,
		"hold_flag":       "N",
		"dispute_flag":    dispute,
		"dispute_reason":  reason,
		"payment_terms":   inv.cust.terms,
		"document_type":   "IN",
		"division":        "001",
		"gl_account":      "1200",
		"gl_post_date":    inv.date,
		"gl_posted_flag":  "Y",
		"created_date":    inv.date,
		"updated_date":    g.dateBetween(inv.date, dataEnd),
		"updated_time":    g.clock(),
		"updated_by":      g.pick(users),
		"batch_session":   inv.session,
	}
}

func (g *Generator) payments(invoices []*invoice) ([]*payment, []fixedwidth.Record) {
	var out []*payment
	var records []fixedwidth.Record
	for _, inv := range invoices {
		if len(out) >= g.opts.Payments {
			break
		}
		if !inv.paid.IsPositive() {
			continue
		}
		end := inv.date.AddDate(0, 0, 120)
		if end.After(dataEnd) {
			end = dataEnd
		}
		p := &payment{
			id:      500000 + len(out),
			date:    g.dateBetween(inv.date, end),
			amount:  inv.paid,
			applied: g.rnd.Float64() > 0.15,
			session: 100000 + g.rnd.Intn(900000),
		}
		method := g.weighted(paymentMethods, []float64{0.35, 0.40, 0.15, 0.10})
		check, bankRef := "", ""
		switch method {
		case "CK":
			check = fmt.Sprint(1000 + g.rnd.Intn(9000))
		case "AC", "WR":
			bankRef = fmt.Sprintf("REF%d", 100000000+g.rnd.Intn(900000000))
		}
		remit := inv.cust.name
		if g.rnd.Float64() < 0.15 {
			remit = strings.ToUpper(strings.Fields(remit)[0])
		}
		invRef := 0
		if g.rnd.Float64() > 0.2 {
			invRef = inv.number
		}
		rec := fixedwidth.Record{
			"payment_id":        p.id,
			"customer_id":       inv.cust.id,
			"payment_date":      p.date,
			"payment_amount":    p.amount,
			"payment_method":    method,
			"check_number":      check,
			"bank_reference":    bankRef,
			"remittance_name":   remit,
			"invoice_reference": invRef,
			"payment_type":      "PM",
			"batch_session":     p.session,
			"batch_id":          g.batchID(),
			"created_date":      p.date,
			"updated_date":      p.date,
			"updated_time":      g.clock(),
			"updated_by":        g.pick(users),
		}
		if p.applied {
			rec["applied_flag"], rec["applied_date"], rec["applied_amount"], rec["unapplied_amount"], rec["status"] =
				"Y", p.date, p.amount, decimal.Zero, "AP"
		} else {
			rec["applied_flag"], rec["applied_date"], rec["applied_amount"], rec["unapplied_amount"], rec["status"] =
				"N", nil, decimal.Zero, p.amount, "RV"
		}
		out = append(out, p)
		records = append(records, rec)
	}
	return out, records
}

// journal は請求と入金から借方・貸方 2 行ずつの仕訳を生成します。
func (g *Generator) journal(invoices []*invoice, payments []*payment) []fixedwidth.Record {
	var out []fixedwidth.Record
	journalID := 1000000
	full := func() bool { return g.opts.JournalLines > 0 && len(out)+2 > g.opts.JournalLines }

	entry := func(line int, date time.Time, account string, debit, credit decimal.Decimal, desc, ref, docType string, session int) fixedwidth.Record {
		return fixedwidth.Record{
			"journal_id":       journalID,
			"line_number":      line,
			"post_date":        date,
			"period":           date.Year()*100 + int(date.Month()),
			"fiscal_year":      date.Year(),
			"gl_account":       account,
			"department":       "0000",
			"project":          "",
			"debit_amount":     debit,
			"credit_amount":    credit,
			"description":      desc,
			"reference":        ref,
			"source":           "AR",
			"document_type":    docType,
			"status":           "P",
			"reversal_flag":    "N",
			"reversal_journal": 0,
			"created_date":     date,
			"updated_date":     date,
			"updated_time":     g.clock(),
			"updated_by":       "BATCH",
			"batch_session":    session,
		}
	}

	for _, inv := range invoices {
		if full() {
			return out
		}
		desc, ref := fmt.Sprintf("Invoice %d", inv.number), fmt.Sprint(inv.number)
		out = append(out,
			entry(1, inv.date, "1200", inv.total, decimal.Zero, desc, ref, "INV", inv.session),
			entry(2, inv.date, "4100", decimal.Zero, inv.total, desc, ref, "INV", inv.session))
		journalID++
	}
	for _, p := range payments {
		if !p.applied {
			continue
		}
		if full() {
			return out
		}
		desc, ref := fmt.Sprintf("Payment %d", p.id), fmt.Sprint(p.id)
		out = append(out,
			entry(1, p.date, "1100", p.amount, decimal.Zero, desc, ref, "PMT", p.session),
			entry(2, p.date, "1200", decimal.Zero, p.amount, desc, ref, "PMT", p.session))
		journalID++
	}
	return out
}

// batchID は乱数源から作った UUID を短縮した取込バッチ ID です。
func (g *Generator) batchID() string {
	id, err := uuid.NewRandomFromReader(g.rnd)
	if err != nil {
		id = uuid.Nil
	}
	return "B" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))[:14]
}

func (g *Generator) pickSegment() segment {
	r := g.rnd.Float64()
	for _, s := range segments {
		if r < s.weight {
			return s
		}
		r -= s.weight
	}
	return segments[len(segments)-1]
}

func (g *Generator) pick(values []string) string {
	return values[g.rnd.Intn(len(values))]
}

func (g *Generator) weighted(values []string, weights []float64) string {
	r := g.rnd.Float64()
	for i, w := range weights {
		if r < w {
			return values[i]
		}
		r -= w
	}
	return values[len(values)-1]
}

func (g *Generator) dateBetween(from, to time.Time) time.Time {
	days := int(to.Sub(from).Hours() / 24)
	if days <= 0 {
		return from
	}
	return from.AddDate(0, 0, g.rnd.Intn(days+1))
}

// clock は 0 時 0 分 0 秒を除いた時刻を返します。"000000" は欠損として読まれるためです。
func (g *Generator) clock() fixedwidth.NullTime {
	sec := 1 + g.rnd.Intn(24*3600-1)
	return fixedwidth.TimeOf(sec/3600, sec/60%60, sec%60)
}

func (g *Generator) money(min, max float64) decimal.Decimal {
	return decimal.NewFromFloat(min + g.rnd.Float64()*(max-min)).Round(2)
}
