package sqlengine

import (
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/bookverse/borrowledger/journal"
)

const (
	colKind           = "kind"
	colOccurredAt     = "occurred_at"
	colPayload        = "payload"
	colMetadata       = "metadata"
	colSequenceNumber = "sequence_number"
	cteContext        = "context"
	cteVals           = "vals"
	aliasMaxSeq       = "max_seq"
)

// Dialect holds what differs between the SQL engines.
type Dialect struct {
	// Name is the registered goqu dialect.
	Name string

	// Predicate renders a payload predicate.
	Predicate func(key, val string) (exp.Expression, error)

	// CastText, CastTimestamp and CastJSON wrap every inserted literal.
	CastText      string
	CastTimestamp string
	CastJSON      string
}

type builder struct {
	dialect   Dialect
	tableName string
}

func (b builder) selectQuery(filter journal.Filter) (string, error) {
	selectStmt := goqu.Dialect(b.dialect.Name).
		From(b.tableName).
		Select(colKind, colOccurredAt, colPayload, colMetadata, colSequenceNumber).
		Order(goqu.I(colSequenceNumber).Asc())

	selectStmt, err := b.addWhereClause(filter, selectStmt)
	if err != nil {
		return "", err
	}

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(journal.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// appendQuery inserts the entries only if the stream selected by filter still ends at expected.
func (b builder) appendQuery(entries journal.Entries, filter journal.Filter, expected journal.Position) (string, error) {
	dialect := goqu.Dialect(b.dialect.Name)

	cteStmt := dialect.
		From(b.tableName).
		Select(goqu.MAX(colSequenceNumber).As(aliasMaxSeq))

	cteStmt, err := b.addWhereClause(filter, cteStmt)
	if err != nil {
		return "", err
	}

	guard := goqu.COALESCE(goqu.C(aliasMaxSeq), 0).Eq(goqu.V(expected))

	var insertStmt *goqu.InsertDataset

	if len(entries) == 1 {
		entry := entries[0]
		insertStmt = dialect.
			Insert(b.tableName).
			Cols(colKind, colOccurredAt, colPayload, colMetadata).
			With(cteContext, cteStmt).
			FromQuery(
				dialect.From(cteContext).
					Select(
						goqu.L(b.dialect.CastText, entry.Kind),
						goqu.L(b.dialect.CastTimestamp, entry.OccurredAt),
						goqu.L(b.dialect.CastJSON, string(entry.PayloadJSON)),
						goqu.L(b.dialect.CastJSON, string(entry.MetadataJSON)),
					).
					Where(guard),
			)
	} else {
		valuesStmt := b.valueSelect(entries[0])
		for _, entry := range entries[1:] {
			valuesStmt = valuesStmt.UnionAll(b.valueSelect(entry))
		}

		insertStmt = dialect.
			Insert(b.tableName).
			Cols(colKind, colOccurredAt, colPayload, colMetadata).
			With(cteContext, cteStmt).
			With(cteVals, valuesStmt).
			FromQuery(
				dialect.From(cteContext, cteVals).
					Select(
						goqu.I(cteVals+"."+colKind),
						goqu.I(cteVals+"."+colOccurredAt),
						goqu.I(cteVals+"."+colPayload),
						goqu.I(cteVals+"."+colMetadata),
					).
					Where(guard),
			)
	}

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(journal.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (b builder) valueSelect(entry journal.Entry) *goqu.SelectDataset {
	return goqu.Dialect(b.dialect.Name).
		Select(
			goqu.L(b.dialect.CastText, entry.Kind).As(colKind),
			goqu.L(b.dialect.CastTimestamp, entry.OccurredAt).As(colOccurredAt),
			goqu.L(b.dialect.CastJSON, string(entry.PayloadJSON)).As(colPayload),
			goqu.L(b.dialect.CastJSON, string(entry.MetadataJSON)).As(colMetadata),
		)
}

func (b builder) addWhereClause(filter journal.Filter, selectStmt *goqu.SelectDataset) (*goqu.SelectDataset, error) {
	if len(filter.Items()) == 0 {
		return selectStmt, nil
	}

	itemExpressions := make([]exp.Expression, 0, len(filter.Items()))

	for _, item := range filter.Items() {
		kindExpressions := make([]exp.Expression, 0, len(item.Kinds()))
		for _, kind := range item.Kinds() {
			kindExpressions = append(kindExpressions, goqu.Ex{colKind: kind})
		}

		predicateExpressions := make([]exp.Expression, 0, len(item.Predicates()))
		for _, predicate := range item.Predicates() {
			expression, err := b.dialect.Predicate(predicate.Key(), predicate.Val())
			if err != nil {
				return nil, errors.Join(journal.ErrBuildingQueryFailed, fmt.Errorf("predicate %q: %w", predicate.Key(), err))
			}

			predicateExpressions = append(predicateExpressions, expression)
		}

		predicates := goqu.Or(predicateExpressions...)
		if item.AllPredicatesMustMatch() {
			predicates = goqu.And(predicateExpressions...)
		}

		// kinds are always OR-ed
		itemExpressions = append(itemExpressions, goqu.And(goqu.Or(kindExpressions...), predicates))
	}

	return selectStmt.Where(goqu.Or(itemExpressions...)), nil
}
