package sheets

import (
	"fmt"
	"strings"
	"time"

	"ynabmetrics/internal/core"
)

var dateLayouts = []string{time.DateOnly, "1/2/2006", "2006/01/02"}

// table is a sheet range split into a header index and data rows.
type table struct {
	header []string
	rows   [][]string
}

func newTable(values [][]interface{}) table {
	if len(values) == 0 {
		return table{}
	}
	t := table{header: toStrings(values[0])}
	for i := range t.header {
		t.header[i] = strings.ToLower(t.header[i])
	}
	for _, v := range values[1:] {
		row := toStrings(v)
		if isBlank(row) {
			continue
		}
		t.rows = append(t.rows, row)
	}
	return t
}

// require returns the column indexes for names, failing on the first missing one.
func (t table) require(sheet string, names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = indexOf(t.header, name)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%s sheet: missing %q column", sheet, name)
		}
	}
	return idx, nil
}

func parseAccounts(values [][]interface{}) ([]core.Account, error) {
	t := newTable(values)
	if t.header == nil {
		return nil, nil
	}
	cols, err := t.require("accounts", "name", "type", "balance")
	if err != nil {
		return nil, err
	}
	closedCol := indexOf(t.header, "closed")
	onBudgetCol := indexOf(t.header, "on budget")

	out := make([]core.Account, 0, len(t.rows))
	for i, row := range t.rows {
		name := safeGet(row, cols[0])
		balance, err := core.ParseAmount(safeGet(row, cols[2]))
		if err != nil {
			return nil, fmt.Errorf("accounts row %d: balance %q: %w", i+2, safeGet(row, cols[2]), err)
		}
		onBudget := true
		if onBudgetCol >= 0 && safeGet(row, onBudgetCol) != "" {
			onBudget = parseBool(safeGet(row, onBudgetCol))
		}
		out = append(out, core.Account{
			ID:       name,
			Name:     name,
			Type:     core.AccountType(safeGet(row, cols[1])),
			Balance:  balance,
			Closed:   parseBool(safeGet(row, closedCol)),
			OnBudget: onBudget,
		})
	}
	return out, nil
}

func parseCategories(values [][]interface{}) ([]core.CategoryGroup, error) {
	t := newTable(values)
	if t.header == nil {
		return nil, nil
	}
	cols, err := t.require("categories", "group", "category")
	if err != nil {
		return nil, err
	}
	assignedCol := indexOf(t.header, "assigned")
	availableCol := indexOf(t.header, "available")
	goalCol := indexOf(t.header, "goal")

	var groups []core.CategoryGroup
	index := make(map[string]int)
	for i, row := range t.rows {
		groupName := safeGet(row, cols[0])
		name := safeGet(row, cols[1])

		assigned, err := optionalAmount(safeGet(row, assignedCol))
		if err != nil {
			return nil, fmt.Errorf("categories row %d: assigned: %w", i+2, err)
		}
		available, err := optionalAmount(safeGet(row, availableCol))
		if err != nil {
			return nil, fmt.Errorf("categories row %d: available: %w", i+2, err)
		}
		var goal *core.Milliunits
		if raw := safeGet(row, goalCol); raw != "" {
			g, err := core.ParseAmount(raw)
			if err != nil {
				return nil, fmt.Errorf("categories row %d: goal %q: %w", i+2, raw, err)
			}
			goal = &g
		}

		gi, ok := index[groupName]
		if !ok {
			gi = len(groups)
			index[groupName] = gi
			groups = append(groups, core.CategoryGroup{ID: groupName, Name: groupName})
		}
		groups[gi].Categories = append(groups[gi].Categories, core.Category{
			ID:         categoryID(groupName, name),
			Name:       name,
			GroupID:    groupName,
			Budgeted:   assigned,
			Balance:    available,
			GoalTarget: goal,
		})
	}
	return groups, nil
}

func parseTransactions(values [][]interface{}, loc *time.Location) ([]core.Transaction, error) {
	t := newTable(values)
	if t.header == nil {
		return nil, nil
	}
	cols, err := t.require("transactions", "date", "amount")
	if err != nil {
		return nil, err
	}
	payeeCol := indexOf(t.header, "payee")
	groupCol := indexOf(t.header, "group")
	categoryCol := indexOf(t.header, "category")
	accountCol := indexOf(t.header, "account")

	out := make([]core.Transaction, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2
		date, err := parseDate(safeGet(row, cols[0]), loc)
		if err != nil {
			return nil, fmt.Errorf("transactions row %d: %w", line, err)
		}
		amount, err := core.ParseAmount(safeGet(row, cols[1]))
		if err != nil {
			return nil, fmt.Errorf("transactions row %d: amount %q: %w", line, safeGet(row, cols[1]), err)
		}

		tx := core.Transaction{
			ID:        fmt.Sprintf("row-%d", line),
			Date:      date,
			Amount:    amount,
			PayeeName: safeGet(row, payeeCol),
			AccountID: safeGet(row, accountCol),
		}
		category := safeGet(row, categoryCol)
		if category == "" {
			tx.CategoryName = core.UncategorizedCategory
		} else {
			tx.CategoryName = category
			tx.CategoryID = categoryID(safeGet(row, groupCol), category)
		}
		out = append(out, tx)
	}
	return out, nil
}

func categoryID(group, name string) string {
	return group + "/" + name
}

func optionalAmount(s string) (core.Milliunits, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return core.ParseAmount(s)
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, s, loc); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "x", "1":
		return true
	}
	return false
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if v == target {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
