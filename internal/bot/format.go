package bot

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"cardfill/internal/core"
)

const notAvailable = "н/д"

var markdownV2Replacer = strings.NewReplacer(
	`\`, `\\`, "_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`, "=", `\=`,
	"|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

// escape makes s safe as MarkdownV2 plain text.
func escape(s string) string {
	return markdownV2Replacer.Replace(s)
}

func formatRatio(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func mention(u core.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.DisplayName()
}

func userLabel(a core.UserAmount) string {
	if a.Username != "" {
		return "@" + a.Username
	}
	return fmt.Sprintf("id%d", a.UserID)
}

func monthNames(months []time.Month) string {
	names := make([]string, 0, len(months))
	for _, m := range months {
		names = append(names, core.MonthName(m))
	}
	return strings.Join(names, ", ")
}

func encodeMonths(months []time.Month) string {
	parts := make([]string, 0, len(months))
	for _, m := range months {
		parts = append(parts, strconv.Itoa(int(m)))
	}
	return strings.Join(parts, ",")
}

func decodeMonths(s string) ([]time.Month, error) {
	if s == "" {
		return nil, nil
	}
	var months []time.Month
	for _, p := range strings.Split(s, ",") {
		n, err := strconv.Atoi(p)
		if err != nil || !core.ValidMonth(time.Month(n)) {
			return nil, fmt.Errorf("invalid month %q", p)
		}
		months = append(months, time.Month(n))
	}
	return months, nil
}

func fillSubject(f core.StoredFill) string {
	s := core.FormatAmount(f.Amount) + "р."
	if f.HasDescription() {
		s += " (" + f.Description + ")"
	}
	return s
}

func acceptedText(f core.StoredFill, from core.User) string {
	text := fmt.Sprintf("Принято %sр. от %s", core.FormatAmount(f.Amount), mention(from))
	if f.HasDescription() {
		text += ": " + f.Description
	}
	return text + ", категория: " + f.Category.Name + "."
}

func changedText(f core.StoredFill) string {
	return fmt.Sprintf("Категория пополнения %s изменена на \"%s\".", fillSubject(f), f.Category.Name)
}

func userFillsText(fills []core.StoredFill, from core.User, months []time.Month, year int) string {
	if len(fills) == 0 {
		return fmt.Sprintf("Не было пополнений в %s %d.", monthNames(months), year)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Пополнения %s за %s %d:", mention(from), monthNames(months), year)
	for _, f := range fills {
		fmt.Fprintf(&b, "\n%s: %s %s %s",
			f.Date.Format("2006-01-02"), core.FormatAmount(f.Amount), f.Description, f.Category.Name)
	}
	return b.String()
}

// summaryText renders one period as MarkdownV2. Proportions are printed
// only for group scopes.
func summaryText(title string, s core.SummaryOverPeriod, scope core.FillScope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s:*\n", escape(title))
	if s.IsEmpty() {
		b.WriteString(escape("Пополнений нет.") + "\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Всего: %s\n", escape(core.FormatAmount(s.Total())))
	for _, u := range s.ByUser {
		fmt.Fprintf(&b, "%s: %s\n", escape(userLabel(u)), escape(core.FormatAmount(u.Amount)))
	}
	if len(s.ByCategory) > 0 {
		b.WriteString("Категории:\n")
		for _, c := range s.ByCategory {
			line := fmt.Sprintf("  - %s: %s", c.Name, core.FormatAmount(c.Amount))
			if c.Budget.Valid {
				line += " / " + core.FormatAmount(c.Budget.Decimal)
				if c.OverBudget() {
					line += " (бюджет превышен)"
				}
			}
			b.WriteString(escape(line) + "\n")
		}
	}
	if scope.IsGroup() {
		fmt.Fprintf(&b, "Пропорция: цель %s, факт %s\n",
			escape(formatRatio(s.Proportions.Target)), escape(formatRatio(s.Proportions.Actual)))
	}
	return b.String()
}

func monthlyText(report map[time.Month]core.SummaryOverPeriod, months []time.Month, year int, scope core.FillScope) string {
	var b strings.Builder
	for i, m := range months {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(summaryText(fmt.Sprintf("%s %d", core.MonthName(m), year), report[m], scope))
	}
	return b.String()
}

func totalText(totals []core.UserAmount) string {
	if len(totals) == 0 {
		return "Пополнений пока нет."
	}
	lines := make([]string, 0, len(totals))
	for _, u := range totals {
		lines = append(lines, fmt.Sprintf("%s: %s", userLabel(u), core.FormatAmount(u.Amount)))
	}
	return strings.Join(lines, "\n")
}
