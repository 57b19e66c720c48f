package analysis

import (
	"fmt"
	"strings"

	"github.com/almazgeobur/sales-analyzer/internal/model"
)

// BuildPrompt renders the analytical prompt for one feed summary. The layout
// is a compatibility surface: downstream consumers and tests depend on the
// exact bytes, so any change here is a breaking change.
func BuildPrompt(s model.SalesSummary) string {
	topItems := make([]string, 0, len(s.TopItems))
	for _, item := range s.TopItems {
		topItems = append(topItems, fmt.Sprintf("%s %d шт.", item.Name, item.Quantity))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Проанализируй данные о продажах за %s:\n", s.Date)
	fmt.Fprintf(&sb, "1. Общая выручка: %s\n", s.TotalRevenue.StringFixed(2))
	fmt.Fprintf(&sb, "2. Топ-3 товара по продажам: %s\n", strings.Join(topItems, ", "))
	fmt.Fprintf(&sb, "3. Распределение по категориям: %s\n\n", strings.Join(s.Categories, ", "))
	sb.WriteString("Составь краткий аналитический отчет с выводами и рекомендациями.")
	return sb.String()
}
