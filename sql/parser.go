package sql

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/decentdb/decentdb/core"
)

type StatementType int

const (
	SelectStatementType StatementType = iota
	InsertStatementType
	UpdateStatementType
	DeleteStatementType
	CreateTableStatementType
	DropTableStatementType
	CreateIndexStatementType
	DropIndexStatementType
	BeginStatementType
	CommitStatementType
	RollbackStatementType
)

func (t StatementType) String() string {
	switch t {
	case SelectStatementType:
		return "SELECT"
	case InsertStatementType:
		return "INSERT"
	case UpdateStatementType:
		return "UPDATE"
	case DeleteStatementType:
		return "DELETE"
	case CreateTableStatementType:
		return "CREATE TABLE"
	case DropTableStatementType:
		return "DROP TABLE"
	case CreateIndexStatementType:
		return "CREATE INDEX"
	case DropIndexStatementType:
		return "DROP INDEX"
	case BeginStatementType:
		return "BEGIN"
	case CommitStatementType:
		return "COMMIT"
	case RollbackStatementType:
		return "ROLLBACK"
	default:
		return "UNKNOWN"
	}
}

type Statement interface {
	Type() StatementType
}

// Operand is a literal or a $N placeholder.
type Operand struct {
	Literal core.Value
	Param   int // 1-based placeholder number; 0 for literals
}

func (o Operand) IsParam() bool {
	return o.Param > 0
}

func (o Operand) String() string {
	if o.IsParam() {
		return "$" + strconv.Itoa(o.Param)
	}
	return o.Literal.String()
}

type SelectStatement struct {
	Table      string
	Columns    []string // empty with no aggregates means *
	Aggregates []AggregateExpr
	Distinct   bool
	Where      WhereClause
	OrderBy    []OrderByClause
	Limit      *Operand
	Offset     *Operand
}

type AggregateExpr struct {
	Function string // COUNT, SUM, AVG, MIN, MAX
	Column   string // "*" for COUNT(*)
	Alias    string
}

// Name is the result column name of the aggregate.
func (a AggregateExpr) Name() string {
	if a.Alias != "" {
		return a.Alias
	}
	return a.Function + "(" + a.Column + ")"
}

type InsertStatement struct {
	Table   string
	Columns []string // empty means all columns in declaration order
	Rows    [][]Operand
}

type UpdateStatement struct {
	Table   string
	Updates []SetClause
	Where   WhereClause
}

type SetClause struct {
	Column string
	Value  Operand
}

type DeleteStatement struct {
	Table string
	Where WhereClause
}

type CreateTableStatement struct {
	Table       string
	IfNotExists bool
	Columns     []core.Column
}

type DropTableStatement struct {
	Table    string
	IfExists bool
}

type CreateIndexStatement struct {
	Name        string
	Table       string
	Columns     []string
	Unique      bool
	IfNotExists bool
}

type DropIndexStatement struct {
	Name     string
	IfExists bool
}

type BeginStatement struct{}
type CommitStatement struct{}
type RollbackStatement struct{}

type WhereClause struct {
	Conditions []WhereCondition
	LogicalOps []LogicalOperator // between consecutive conditions; AND binds tighter than OR
}

func (w WhereClause) Empty() bool {
	return len(w.Conditions) == 0
}

type LogicalOperator int

const (
	LogicalAnd LogicalOperator = iota
	LogicalOr
)

type WhereCondition struct {
	Column   string
	Operator WhereOperator
	Right    Operand
	InValues []Operand
	Negated  bool
}

type WhereOperator int

const (
	EqualsOperator WhereOperator = iota
	NotEqualsOperator
	LessThanOperator
	GreaterThanOperator
	LessThanOrEqualOperator
	GreaterThanOrEqualOperator
	LikeOperator
	IsNullOperator
	IsNotNullOperator
	InOperator
)

type OrderByClause struct {
	Column     string
	Descending bool
}

func (s SelectStatement) Type() StatementType      { return SelectStatementType }
func (s InsertStatement) Type() StatementType      { return InsertStatementType }
func (s UpdateStatement) Type() StatementType      { return UpdateStatementType }
func (s DeleteStatement) Type() StatementType      { return DeleteStatementType }
func (s CreateTableStatement) Type() StatementType { return CreateTableStatementType }
func (s DropTableStatement) Type() StatementType   { return DropTableStatementType }
func (s CreateIndexStatement) Type() StatementType { return CreateIndexStatementType }
func (s DropIndexStatement) Type() StatementType   { return DropIndexStatementType }
func (s BeginStatement) Type() StatementType       { return BeginStatementType }
func (s CommitStatement) Type() StatementType      { return CommitStatementType }
func (s RollbackStatement) Type() StatementType    { return RollbackStatementType }

type Parser struct {
	lexer  *Lexer
	token  Token
	params int
}

func NewParser(sql string) *Parser {
	parser := &Parser{lexer: NewLexer(sql)}
	parser.next()
	return parser
}

// Parse parses exactly one statement, optionally followed by a semicolon.
func Parse(sql string) (Statement, int, error) {
	parser := NewParser(sql)
	statement, err := parser.Parse()
	if err != nil {
		return nil, 0, err
	}
	return statement, parser.ParamCount(), nil
}

// ParamCount is the highest placeholder number seen.
func (parser *Parser) ParamCount() int {
	return parser.params
}

func (parser *Parser) next() Token {
	parser.token = parser.lexer.NextToken()
	return parser.token
}

func (parser *Parser) is(t TokenType) bool {
	return parser.token.Type == t
}

func (parser *Parser) accept(t TokenType) bool {
	if parser.token.Type == t {
		parser.next()
		return true
	}
	return false
}

func (parser *Parser) expect(t TokenType, what string) error {
	if parser.token.Type != t {
		return parser.errorf("expected %s", what)
	}
	parser.next()
	return nil
}

func (parser *Parser) errorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	switch parser.token.Type {
	case Unknown:
		if parser.token.Value == "?" || parser.token.Value == "@" {
			return syntaxError("unsupported parameter style %s; use $1, $2, ...", parser.token.Value)
		}
		if strings.HasPrefix(parser.token.Value, "unterminated") {
			return syntaxError("%s", parser.token.Value)
		}
	}
	return syntaxError("%s near %s", msg, parser.token.describe())
}

func syntaxError(format string, args ...any) error {
	return core.Errorf(core.CodeSyntax, "syntax error: "+format, args...)
}

func (parser *Parser) Parse() (Statement, error) {
	statement, err := parser.parseStatement()
	if err != nil {
		return nil, err
	}
	parser.accept(Semicolon)
	if !parser.is(EOF) {
		return nil, parser.errorf("unexpected trailing input")
	}
	return statement, nil
}

func (parser *Parser) parseStatement() (Statement, error) {
	token := parser.token
	parser.next()
	switch token.Type {
	case Select:
		return ParseSelect(parser)
	case Insert:
		return ParseInsert(parser)
	case Update:
		return ParseUpdate(parser)
	case Delete:
		return ParseDelete(parser)
	case Create:
		return ParseCreate(parser)
	case Drop:
		return ParseDrop(parser)
	case Begin:
		parser.accept(Transaction)
		return BeginStatement{}, nil
	case Commit:
		parser.accept(Transaction)
		return CommitStatement{}, nil
	case Rollback:
		parser.accept(Transaction)
		return RollbackStatement{}, nil
	case EOF:
		return nil, syntaxError("empty statement")
	default:
		parser.token = token
		return nil, parser.errorf("unknown statement type")
	}
}

func (parser *Parser) parseName(what string) (string, error) {
	if !parser.is(Identifier) {
		return "", parser.errorf("expected %s", what)
	}
	name := parser.token.Value
	parser.next()
	return name, nil
}

// parseOperand reads a literal, NULL, TRUE/FALSE, or a $N placeholder.
func (parser *Parser) parseOperand() (Operand, error) {
	token := parser.token
	switch token.Type {
	case Param:
		n, err := strconv.Atoi(token.Value)
		if err != nil || n < 1 {
			return Operand{}, parser.errorf("invalid parameter")
		}
		if n > parser.params {
			parser.params = n
		}
		parser.next()
		return Operand{Param: n}, nil
	case Null:
		parser.next()
		return Operand{Literal: core.Null{}}, nil
	case True, False:
		parser.next()
		return Operand{Literal: core.Bool(token.Type == True)}, nil
	case String:
		parser.next()
		return Operand{Literal: core.Text(token.Value)}, nil
	case Blob:
		b, err := hex.DecodeString(token.Value)
		if err != nil {
			return Operand{}, parser.errorf("invalid blob literal")
		}
		parser.next()
		return Operand{Literal: core.NewBlob(b)}, nil
	case Minus:
		parser.next()
		if !parser.is(Int) && !parser.is(Float) {
			return Operand{}, parser.errorf("expected number after '-'")
		}
		parser.token.Value = "-" + parser.token.Value
		return parser.parseOperand()
	case Int:
		n, err := strconv.ParseInt(token.Value, 10, 64)
		if err != nil {
			return Operand{}, parser.errorf("integer literal out of range")
		}
		parser.next()
		return Operand{Literal: core.Int64(n)}, nil
	case Float:
		parser.next()
		if !strings.ContainsAny(token.Value, "eE") {
			if d, err := core.ParseDecimal(token.Value); err == nil {
				return Operand{Literal: d}, nil
			}
		}
		f, err := strconv.ParseFloat(token.Value, 64)
		if err != nil {
			return Operand{}, syntaxError("invalid number %s", token.Value)
		}
		return Operand{Literal: core.Float64(f)}, nil
	default:
		return Operand{}, parser.errorf("expected value")
	}
}

func ParseSelect(parser *Parser) (Statement, error) {
	var selectStatement SelectStatement

	if parser.accept(Distinct) {
		selectStatement.Distinct = true
	}

	if parser.accept(Wildcard) {
		selectStatement.Columns = []string{}
	} else {
		for {
			switch parser.token.Type {
			case Count, Sum, Avg, Min, Max:
				agg, err := parseAggregate(parser)
				if err != nil {
					return nil, err
				}
				selectStatement.Aggregates = append(selectStatement.Aggregates, agg)
			case Identifier:
				selectStatement.Columns = append(selectStatement.Columns, parser.token.Value)
				parser.next()
			default:
				return nil, parser.errorf("expected column name, *, COUNT, SUM, AVG, MIN, or MAX")
			}
			if !parser.accept(Comma) {
				break
			}
		}
		if len(selectStatement.Aggregates) > 0 && len(selectStatement.Columns) > 0 {
			return nil, syntaxError("cannot mix aggregates and plain columns")
		}
	}

	if err := parser.expect(From, "FROM"); err != nil {
		return nil, err
	}
	table, err := parser.parseName("table name")
	if err != nil {
		return nil, err
	}
	selectStatement.Table = table

	if parser.accept(Where) {
		whereClause, err := ParseWhere(parser)
		if err != nil {
			return nil, err
		}
		selectStatement.Where = whereClause
	}

	if parser.accept(Order) {
		if err := parser.expect(By, "BY after ORDER"); err != nil {
			return nil, err
		}
		for {
			column, err := parser.parseName("column name in ORDER BY")
			if err != nil {
				return nil, err
			}
			orderByClause := OrderByClause{Column: column}
			if parser.accept(Desc) {
				orderByClause.Descending = true
			} else {
				parser.accept(Asc)
			}
			selectStatement.OrderBy = append(selectStatement.OrderBy, orderByClause)
			if !parser.accept(Comma) {
				break
			}
		}
	}

	if parser.accept(Limit) {
		limit, err := parseCount(parser, "LIMIT")
		if err != nil {
			return nil, err
		}
		selectStatement.Limit = &limit
	}

	if parser.accept(Offset) {
		offset, err := parseCount(parser, "OFFSET")
		if err != nil {
			return nil, err
		}
		selectStatement.Offset = &offset
	}

	return selectStatement, nil
}

func parseAggregate(parser *Parser) (AggregateExpr, error) {
	agg := AggregateExpr{Function: toUpper(parser.token.Value)}
	isCount := parser.is(Count)
	parser.next()
	if err := parser.expect(ParenOpen, "'(' after "+agg.Function); err != nil {
		return agg, err
	}
	if isCount && parser.accept(Wildcard) {
		agg.Column = "*"
	} else {
		column, err := parser.parseName("column name in " + agg.Function + "()")
		if err != nil {
			return agg, err
		}
		agg.Column = column
	}
	if err := parser.expect(ParenClose, "')' after column name"); err != nil {
		return agg, err
	}
	if parser.accept(As) {
		alias, err := parser.parseName("alias after AS")
		if err != nil {
			return agg, err
		}
		agg.Alias = alias
	}
	return agg, nil
}

func parseCount(parser *Parser, clause string) (Operand, error) {
	if !parser.is(Int) && !parser.is(Param) {
		return Operand{}, parser.errorf("expected integer or parameter after %s", clause)
	}
	operand, err := parser.parseOperand()
	if err != nil {
		return Operand{}, err
	}
	if !operand.IsParam() && int64(operand.Literal.(core.Int64)) < 0 {
		return Operand{}, syntaxError("%s must not be negative", clause)
	}
	return operand, nil
}

func ParseWhere(parser *Parser) (WhereClause, error) {
	var whereClause WhereClause

	for {
		negated := parser.accept(Not)

		left, err := parser.parseName("column name in WHERE clause")
		if err != nil {
			return whereClause, err
		}
		condition := WhereCondition{Column: left, Negated: negated}

		switch parser.token.Type {
		case Is:
			parser.next()
			if parser.accept(Not) {
				condition.Operator = IsNotNullOperator
			} else {
				condition.Operator = IsNullOperator
			}
			if err := parser.expect(Null, "NULL after IS"); err != nil {
				return whereClause, err
			}
		case In, Not:
			if parser.accept(Not) {
				condition.Negated = !condition.Negated
				if !parser.is(In) && !parser.is(Like) {
					return whereClause, parser.errorf("expected IN or LIKE after NOT")
				}
				if parser.is(Like) {
					parser.next()
					condition.Operator = LikeOperator
					right, err := parser.parseOperand()
					if err != nil {
						return whereClause, err
					}
					condition.Right = right
					break
				}
			}
			parser.next()
			condition.Operator = InOperator
			if err := parser.expect(ParenOpen, "'(' after IN"); err != nil {
				return whereClause, err
			}
			for {
				value, err := parser.parseOperand()
				if err != nil {
					return whereClause, err
				}
				condition.InValues = append(condition.InValues, value)
				if parser.accept(ParenClose) {
					break
				}
				if err := parser.expect(Comma, "',' or ')' in IN list"); err != nil {
					return whereClause, err
				}
			}
		default:
			switch parser.token.Type {
			case Equals:
				condition.Operator = EqualsOperator
			case NotEquals:
				condition.Operator = NotEqualsOperator
			case LessThan:
				condition.Operator = LessThanOperator
			case GreaterThan:
				condition.Operator = GreaterThanOperator
			case LessThanOrEqual:
				condition.Operator = LessThanOrEqualOperator
			case GreaterThanOrEqual:
				condition.Operator = GreaterThanOrEqualOperator
			case Like:
				condition.Operator = LikeOperator
			default:
				return whereClause, parser.errorf("expected operator in WHERE clause")
			}
			parser.next()
			right, err := parser.parseOperand()
			if err != nil {
				return whereClause, err
			}
			condition.Right = right
		}

		whereClause.Conditions = append(whereClause.Conditions, condition)

		if parser.accept(And) {
			whereClause.LogicalOps = append(whereClause.LogicalOps, LogicalAnd)
			continue
		}
		if parser.accept(Or) {
			whereClause.LogicalOps = append(whereClause.LogicalOps, LogicalOr)
			continue
		}
		return whereClause, nil
	}
}

func ParseInsert(parser *Parser) (Statement, error) {
	var insertStatement InsertStatement

	if err := parser.expect(Into, "INTO after INSERT"); err != nil {
		return nil, err
	}
	table, err := parser.parseName("table name after INSERT INTO")
	if err != nil {
		return nil, err
	}
	insertStatement.Table = table

	if parser.accept(ParenOpen) {
		for {
			column, err := parser.parseName("column name")
			if err != nil {
				return nil, err
			}
			insertStatement.Columns = append(insertStatement.Columns, column)
			if parser.accept(ParenClose) {
				break
			}
			if err := parser.expect(Comma, "',' or ')' in column list"); err != nil {
				return nil, err
			}
		}
	}

	if err := parser.expect(Values, "VALUES"); err != nil {
		return nil, err
	}

	for {
		if err := parser.expect(ParenOpen, "'(' after VALUES"); err != nil {
			return nil, err
		}
		var row []Operand
		for {
			value, err := parser.parseOperand()
			if err != nil {
				return nil, err
			}
			row = append(row, value)
			if parser.accept(ParenClose) {
				break
			}
			if err := parser.expect(Comma, "',' or ')' in values list"); err != nil {
				return nil, err
			}
		}
		if len(insertStatement.Columns) > 0 && len(row) != len(insertStatement.Columns) {
			return nil, syntaxError("%d values for %d columns", len(row), len(insertStatement.Columns))
		}
		insertStatement.Rows = append(insertStatement.Rows, row)
		if !parser.accept(Comma) {
			break
		}
	}

	return insertStatement, nil
}

func ParseUpdate(parser *Parser) (Statement, error) {
	var updateStatement UpdateStatement

	table, err := parser.parseName("table name after UPDATE")
	if err != nil {
		return nil, err
	}
	updateStatement.Table = table

	if err := parser.expect(Set, "SET after table name"); err != nil {
		return nil, err
	}

	for {
		column, err := parser.parseName("column name in SET clause")
		if err != nil {
			return nil, err
		}
		if err := parser.expect(Equals, "'=' in SET clause"); err != nil {
			return nil, err
		}
		value, err := parser.parseOperand()
		if err != nil {
			return nil, err
		}
		updateStatement.Updates = append(updateStatement.Updates, SetClause{Column: column, Value: value})
		if !parser.accept(Comma) {
			break
		}
	}

	if parser.accept(Where) {
		whereClause, err := ParseWhere(parser)
		if err != nil {
			return nil, err
		}
		updateStatement.Where = whereClause
	}

	return updateStatement, nil
}

func ParseDelete(parser *Parser) (Statement, error) {
	var deleteStatement DeleteStatement

	if err := parser.expect(From, "FROM after DELETE"); err != nil {
		return nil, err
	}
	table, err := parser.parseName("table name after FROM")
	if err != nil {
		return nil, err
	}
	deleteStatement.Table = table

	if parser.accept(Where) {
		whereClause, err := ParseWhere(parser)
		if err != nil {
			return nil, err
		}
		deleteStatement.Where = whereClause
	}

	return deleteStatement, nil
}

func ParseCreate(parser *Parser) (Statement, error) {
	switch {
	case parser.accept(TableIdentifier):
		return ParseCreateTable(parser)
	case parser.accept(IndexIdentifier):
		return ParseCreateIndex(parser, false)
	case parser.accept(Unique):
		if err := parser.expect(IndexIdentifier, "INDEX after UNIQUE"); err != nil {
			return nil, err
		}
		return ParseCreateIndex(parser, true)
	default:
		return nil, parser.errorf("expected TABLE, INDEX, or UNIQUE INDEX after CREATE")
	}
}

func parseIfNotExists(parser *Parser) (bool, error) {
	if !parser.accept(If) {
		return false, nil
	}
	if err := parser.expect(Not, "NOT after IF"); err != nil {
		return false, err
	}
	if err := parser.expect(Exists, "EXISTS after IF NOT"); err != nil {
		return false, err
	}
	return true, nil
}

func parseIfExists(parser *Parser) (bool, error) {
	if !parser.accept(If) {
		return false, nil
	}
	if err := parser.expect(Exists, "EXISTS after IF"); err != nil {
		return false, err
	}
	return true, nil
}

func ParseCreateTable(parser *Parser) (Statement, error) {
	var createTableStatement CreateTableStatement

	ifNotExists, err := parseIfNotExists(parser)
	if err != nil {
		return nil, err
	}
	createTableStatement.IfNotExists = ifNotExists

	table, err := parser.parseName("table name after TABLE")
	if err != nil {
		return nil, err
	}
	createTableStatement.Table = table

	if err := parser.expect(ParenOpen, "'(' after table name"); err != nil {
		return nil, err
	}

	for {
		column, err := parseColumnDefinition(parser)
		if err != nil {
			return nil, err
		}
		createTableStatement.Columns = append(createTableStatement.Columns, column)
		if parser.accept(ParenClose) {
			break
		}
		if err := parser.expect(Comma, "',' or ')' in column list"); err != nil {
			return nil, err
		}
	}

	return createTableStatement, nil
}

func parseColumnDefinition(parser *Parser) (core.Column, error) {
	var column core.Column

	name, err := parser.parseName("column name")
	if err != nil {
		return column, err
	}
	column.Name = name

	if !parser.is(Identifier) {
		return column, parser.errorf("expected column type")
	}
	switch toUpper(parser.token.Value) {
	case "INT", "INTEGER", "BIGINT", "INT64", "SMALLINT":
		column.Type = core.IntType
	case "REAL", "FLOAT", "DOUBLE", "FLOAT64":
		column.Type = core.FloatType
	case "BOOL", "BOOLEAN":
		column.Type = core.BoolType
	case "TEXT", "VARCHAR", "STRING", "CHAR":
		column.Type = core.TextType
	case "BLOB", "BYTEA", "BYTES":
		column.Type = core.BlobType
	case "DECIMAL", "NUMERIC":
		column.Type = core.DecimalType
	default:
		return column, parser.errorf("expected column type (INT, FLOAT, BOOL, TEXT, BLOB, DECIMAL)")
	}
	parser.next()

	if parser.accept(ParenOpen) {
		args, err := parseTypeArgs(parser)
		if err != nil {
			return column, err
		}
		if column.Type == core.DecimalType {
			column.Precision = args[0]
			if len(args) > 1 {
				column.Scale = args[1]
			}
			if column.Precision < 1 || column.Precision > 19 || column.Scale > column.Precision || column.Scale > core.MaxDecimalScale {
				return column, syntaxError("invalid DECIMAL(%d,%d) for column %s", column.Precision, column.Scale, column.Name)
			}
		}
	}

	for {
		switch {
		case parser.accept(PrimaryKey):
			column.PrimaryKey = true
			column.NotNull = true
		case parser.accept(Unique):
			column.Unique = true
		case parser.accept(Null):
		case parser.is(Not):
			parser.next()
			if err := parser.expect(Null, "NULL after NOT"); err != nil {
				return column, err
			}
			column.NotNull = true
		default:
			return column, nil
		}
	}
}

func parseTypeArgs(parser *Parser) ([]int, error) {
	var args []int
	for {
		if !parser.is(Int) {
			return nil, parser.errorf("expected integer in type arguments")
		}
		n, err := strconv.Atoi(parser.token.Value)
		if err != nil {
			return nil, parser.errorf("type argument out of range")
		}
		args = append(args, n)
		parser.next()
		if parser.accept(ParenClose) {
			break
		}
		if err := parser.expect(Comma, "',' or ')' in type arguments"); err != nil {
			return nil, err
		}
	}
	if len(args) > 2 {
		return nil, syntaxError("too many type arguments")
	}
	return args, nil
}

// ParseCreateIndex parses: CREATE [UNIQUE] INDEX [IF NOT EXISTS] name ON table (col, ...)
func ParseCreateIndex(parser *Parser, unique bool) (Statement, error) {
	statement := CreateIndexStatement{Unique: unique}

	ifNotExists, err := parseIfNotExists(parser)
	if err != nil {
		return nil, err
	}
	statement.IfNotExists = ifNotExists

	name, err := parser.parseName("index name after INDEX")
	if err != nil {
		return nil, err
	}
	statement.Name = name

	if err := parser.expect(On, "ON after index name"); err != nil {
		return nil, err
	}
	table, err := parser.parseName("table name after ON")
	if err != nil {
		return nil, err
	}
	statement.Table = table

	if err := parser.expect(ParenOpen, "'(' after table name"); err != nil {
		return nil, err
	}
	for {
		column, err := parser.parseName("column name inside parentheses")
		if err != nil {
			return nil, err
		}
		statement.Columns = append(statement.Columns, column)
		if parser.accept(ParenClose) {
			break
		}
		if err := parser.expect(Comma, "',' or ')' in index column list"); err != nil {
			return nil, err
		}
	}

	return statement, nil
}

func ParseDrop(parser *Parser) (Statement, error) {
	switch {
	case parser.accept(TableIdentifier):
		ifExists, err := parseIfExists(parser)
		if err != nil {
			return nil, err
		}
		table, err := parser.parseName("table name after TABLE")
		if err != nil {
			return nil, err
		}
		return DropTableStatement{Table: table, IfExists: ifExists}, nil
	case parser.accept(IndexIdentifier):
		ifExists, err := parseIfExists(parser)
		if err != nil {
			return nil, err
		}
		name, err := parser.parseName("index name after INDEX")
		if err != nil {
			return nil, err
		}
		return DropIndexStatement{Name: name, IfExists: ifExists}, nil
	default:
		return nil, parser.errorf("expected TABLE or INDEX after DROP")
	}
}
