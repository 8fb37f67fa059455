package mysql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

var ErrSetRequired = errors.New("update requires set")

type UpdateBuilder struct {
	table string
	sets  []UpdateCond
	where *WhereCond
}

// UpdateFrom は、指定されたテーブル名で初期化された新しい UpdateBuilder を作成します。
func UpdateFrom(table string) UpdateBuilder {
	return UpdateBuilder{table: table}
}

// Set は1つ以上のUpdateCond要素をsetsスライスに追加し、更新されたUpdateBuilderインスタンスを返します。
func (b UpdateBuilder) Set(conds ...UpdateCond) UpdateBuilder {
	b.sets = append(b.sets, conds...)
	return b
}

// Where はUpdateBuilderにWHERE条件を設定し、その条件が適用された新しいUpdateBuilderインスタンスを返します。
// The CAS-style completion transition relies on this WHERE clause to make the
// update conditional: see store.MissionStore.Complete, which folds
// `is_completed = false` into the condition so RowsAffected tells the caller
// whether it won the race.
func (b UpdateBuilder) Where(c *WhereCond) UpdateBuilder {
	b.where = c
	return b
}

// Exec 実行
func (b UpdateBuilder) Exec(ctx context.Context, db *sqlx.DB) (int64, error) {
	q, args, err := b.build()
	if err != nil {
		return 0, err
	}
	q = db.Rebind(q)

	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// build は SQL UPDATE クエリ文字列を構築し、対応する値を準備し、無効な場合はエラーを返します。
func (b UpdateBuilder) build() (string, []any, error) {
	if len(b.sets) == 0 {
		return "", nil, ErrSetRequired
	}
	if b.where == nil {
		return "", nil, ErrWhereRequired
	}
	if !safeIdent(b.table) {
		return "", nil, fmt.Errorf("unsafe table: %s", b.table)
	}

	setStrs := make([]string, 0, len(b.sets))
	setArgs := make([]any, 0, len(b.sets))
	for _, s := range b.sets {
		setStrs = append(setStrs, fmt.Sprintf("%s = ?", s.Set))
		setArgs = append(setArgs, s.Arg)
	}

	sb := strings.Builder{}
	sb.WriteString("UPDATE ")
	sb.WriteString(b.table)
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(setStrs, ", "))
	sb.WriteString(" WHERE ")
	sb.WriteString(b.where.GetSQL())

	return sb.String(), append(setArgs, b.where.args...), nil
}
