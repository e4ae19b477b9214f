package extract

import (
	"strings"

	"github.com/dvloznov/autoledger/internal/taxonomy"
)

// buildPrompt constructs the instruction block sent with every extraction.
// The category lists are generated from the taxonomy so prompt and
// reconciliation can never drift apart.
func buildPrompt() string {
	var b strings.Builder

	b.WriteString("你是一个专业的智能记账助手。请分析提供的图片（支付截图、收款截图、小票）或文本。\n\n")
	b.WriteString("请提取以下关键信息并生成 JSON：\n")
	b.WriteString("1. type: 判断是 'expense' (支出/消费/付款) 还是 'income' (收入/收款/工资/转账收入)。\n")
	b.WriteString("   - 如果是支付成功、消费、付款，则是 'expense'。\n")
	b.WriteString("   - 如果是收款成功、收到转账、工资入账，则是 'income'。\n")
	b.WriteString("2. amount: 金额（数字）。\n")
	b.WriteString("3. merchant: 交易对象。\n")
	b.WriteString("   - 支出：商户名称（如\"星巴克\"）。\n")
	b.WriteString("   - 收入：来源名称（如\"公司转账\"、\"张三\"）。\n")
	b.WriteString("4. category: 从列表中选择最合适的分类：\n")
	b.WriteString("   - 支出类: " + joinCategories(taxonomy.CategoriesFor(taxonomy.Expense)) + "\n")
	b.WriteString("   - 收入类: " + joinCategories(taxonomy.CategoriesFor(taxonomy.Income)) + "\n")
	b.WriteString("5. date: 日期 YYYY-MM-DD。如果不明确，可以省略。\n\n")

	b.WriteString("规则：\n")
	b.WriteString("- 只输出一个 JSON 对象，字段为 type, amount, merchant, category, date。\n")
	b.WriteString("- type, amount, merchant, category 为必填字段。\n")
	b.WriteString("- 不要使用 Markdown 代码块，不要输出任何额外文字。\n")
	b.WriteString("- 输出必须以 \"{\" 开头、以 \"}\" 结尾。\n")

	return b.String()
}

func joinCategories(cats []taxonomy.Category) string {
	parts := make([]string, len(cats))
	for i, c := range cats {
		parts[i] = "'" + string(c) + "'"
	}
	return strings.Join(parts, ", ")
}
