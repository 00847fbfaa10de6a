package sql

type Token struct {
	Type  TokenType
	Value string
}

type TokenType int

const (
	Identifier TokenType = iota
	TableIdentifier
	IndexIdentifier
	In
	On
	Wildcard
	String
	Int
	Float
	Blob
	Param
	PrimaryKey
	Unique
	Comma
	Semicolon
	ParenOpen
	ParenClose
	Minus
	Equals
	NotEquals
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	And
	Or
	Not
	Is
	Null
	Like
	True
	False
	Select
	From
	Where
	Limit
	Offset
	Order
	By
	Asc
	Desc
	Count
	Sum
	Avg
	Min
	Max
	Distinct
	As
	If
	Exists
	Create
	Drop
	Insert
	Update
	Delete
	Set
	Into
	Values
	Begin
	Commit
	Rollback
	Transaction
	EOF
	Unknown
)

func (token Token) String() string {
	switch token.Type {
	case Identifier:
		return "Identifier(" + token.Value + ")"
	case String:
		return "String(" + token.Value + ")"
	case Int:
		return "Int(" + token.Value + ")"
	case Float:
		return "Float(" + token.Value + ")"
	case Blob:
		return "Blob(" + token.Value + ")"
	case Param:
		return "Param($" + token.Value + ")"
	case EOF:
		return "EOF"
	case Unknown:
		return "Unknown(" + token.Value + ")"
	default:
		return token.Value
	}
}

// describe renders the token for error messages.
func (token Token) describe() string {
	switch token.Type {
	case EOF:
		return "end of input"
	case String:
		return "'" + token.Value + "'"
	case Param:
		return "$" + token.Value
	default:
		return "\"" + token.Value + "\""
	}
}

type Lexer struct {
	sql          string
	position     int
	readPosition int
	ch           byte
}

func NewLexer(sql string) *Lexer {
	lexer := &Lexer{sql: sql}
	lexer.readChar()
	return lexer
}

func (lexer *Lexer) readChar() {
	if lexer.readPosition >= len(lexer.sql) {
		lexer.ch = 0
	} else {
		lexer.ch = lexer.sql[lexer.readPosition]
	}
	lexer.position = lexer.readPosition
	lexer.readPosition++
}

func (lexer *Lexer) peekChar() byte {
	if lexer.readPosition >= len(lexer.sql) {
		return 0
	}
	return lexer.sql[lexer.readPosition]
}

func (lexer *Lexer) atEnd() bool {
	return lexer.position >= len(lexer.sql)
}

func (lexer *Lexer) NextToken() Token {
	var token Token

	lexer.skipWhitespaceAndComments()

	switch lexer.ch {
	case ',':
		token = Token{Type: Comma, Value: ","}
	case ';':
		token = Token{Type: Semicolon, Value: ";"}
	case '(':
		token = Token{Type: ParenOpen, Value: "("}
	case ')':
		token = Token{Type: ParenClose, Value: ")"}
	case '*':
		token = Token{Type: Wildcard, Value: "*"}
	case '-':
		token = Token{Type: Minus, Value: "-"}
	case '\'':
		str, ok := lexer.readString('\'')
		if !ok {
			return Token{Type: Unknown, Value: "unterminated string"}
		}
		return Token{Type: String, Value: str}
	case '"':
		ident, ok := lexer.readString('"')
		if !ok {
			return Token{Type: Unknown, Value: "unterminated identifier"}
		}
		return Token{Type: Identifier, Value: ident}
	case '$':
		lexer.readChar()
		if !isDigit(lexer.ch) {
			return Token{Type: Unknown, Value: "$"}
		}
		return Token{Type: Param, Value: lexer.readNumber()}
	case 0:
		if lexer.atEnd() {
			return Token{Type: EOF, Value: ""}
		}
		token = Token{Type: Unknown, Value: "\\x00"}
	default:
		if isOperator(lexer.ch) {
			operator := lexer.readOperator()
			switch operator {
			case "=", "==":
				return Token{Type: Equals, Value: operator}
			case "!=", "<>":
				return Token{Type: NotEquals, Value: operator}
			case "<":
				return Token{Type: LessThan, Value: operator}
			case ">":
				return Token{Type: GreaterThan, Value: operator}
			case "<=":
				return Token{Type: LessThanOrEqual, Value: operator}
			case ">=":
				return Token{Type: GreaterThanOrEqual, Value: operator}
			default:
				return Token{Type: Unknown, Value: operator}
			}
		} else if isDigit(lexer.ch) {
			return lexer.readNumeric()
		} else if isIdentStart(lexer.ch) {
			literal := lexer.readIdentifier()
			if (literal == "x" || literal == "X") && lexer.ch == '\'' {
				hex, ok := lexer.readString('\'')
				if !ok {
					return Token{Type: Unknown, Value: "unterminated blob literal"}
				}
				return Token{Type: Blob, Value: hex}
			}
			if toUpper(literal) == "PRIMARY" {
				lexer.skipWhitespaceAndComments()
				nextLiteral := lexer.readIdentifier()
				if toUpper(nextLiteral) == "KEY" {
					return Token{Type: PrimaryKey, Value: "PRIMARY KEY"}
				}
				return Token{Type: Unknown, Value: literal + " " + nextLiteral}
			}
			return Token{Type: lookupIdentifier(literal), Value: literal}
		} else {
			token = Token{Type: Unknown, Value: string(lexer.ch)}
		}
	}

	lexer.readChar()
	return token
}

func (lexer *Lexer) PeekToken() Token {
	savedPosition := lexer.position
	savedReadPosition := lexer.readPosition
	savedCh := lexer.ch

	token := lexer.NextToken()

	lexer.position = savedPosition
	lexer.readPosition = savedReadPosition
	lexer.ch = savedCh

	return token
}

func (lexer *Lexer) skipWhitespaceAndComments() {
	for {
		for lexer.ch == ' ' || lexer.ch == '\t' || lexer.ch == '\n' || lexer.ch == '\r' {
			lexer.readChar()
		}
		if lexer.ch == '-' && lexer.peekChar() == '-' {
			for lexer.ch != '\n' && !lexer.atEnd() {
				lexer.readChar()
			}
			continue
		}
		return
	}
}

func (lexer *Lexer) readIdentifier() string {
	position := lexer.position
	for isAlphaNumeric(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

// readString reads a quoted run, treating a doubled quote as one literal
// quote. The closing quote is consumed.
func (lexer *Lexer) readString(quote byte) (string, bool) {
	lexer.readChar()
	var out []byte
	for {
		if lexer.atEnd() {
			return "", false
		}
		if lexer.ch == quote {
			if lexer.peekChar() == quote {
				out = append(out, quote)
				lexer.readChar()
				lexer.readChar()
				continue
			}
			lexer.readChar()
			return string(out), true
		}
		out = append(out, lexer.ch)
		lexer.readChar()
	}
}

func (lexer *Lexer) readNumber() string {
	position := lexer.position
	for isDigit(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

// readNumeric reads 12, 12.5 or 1.5e3. Anything with a fraction or exponent
// is a Float token; the parser decides between exact and binary.
func (lexer *Lexer) readNumeric() Token {
	position := lexer.position
	tokenType := Int
	lexer.readNumber()
	if lexer.ch == '.' && isDigit(lexer.peekChar()) {
		tokenType = Float
		lexer.readChar()
		lexer.readNumber()
	}
	if lexer.ch == 'e' || lexer.ch == 'E' {
		next := lexer.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			tokenType = Float
			lexer.readChar()
			if lexer.ch == '+' || lexer.ch == '-' {
				lexer.readChar()
			}
			lexer.readNumber()
		}
	}
	return Token{Type: tokenType, Value: lexer.sql[position:lexer.position]}
}

func (lexer *Lexer) readOperator() string {
	position := lexer.position
	for isOperator(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func isIdentStart(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
}

func isAlphaNumeric(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isOperator(ch byte) bool {
	return ch == '=' || ch == '!' || ch == '<' || ch == '>'
}

func lookupIdentifier(id string) TokenType {
	switch toUpper(id) {
	case "TABLE":
		return TableIdentifier
	case "INDEX":
		return IndexIdentifier
	case "IN":
		return In
	case "ON":
		return On
	case "UNIQUE":
		return Unique
	case "AND":
		return And
	case "OR":
		return Or
	case "NOT":
		return Not
	case "IS":
		return Is
	case "NULL":
		return Null
	case "LIKE":
		return Like
	case "TRUE":
		return True
	case "FALSE":
		return False
	case "SELECT":
		return Select
	case "FROM":
		return From
	case "WHERE":
		return Where
	case "LIMIT":
		return Limit
	case "OFFSET":
		return Offset
	case "ORDER":
		return Order
	case "BY":
		return By
	case "ASC":
		return Asc
	case "DESC":
		return Desc
	case "COUNT":
		return Count
	case "SUM":
		return Sum
	case "AVG":
		return Avg
	case "MIN":
		return Min
	case "MAX":
		return Max
	case "DISTINCT":
		return Distinct
	case "AS":
		return As
	case "IF":
		return If
	case "EXISTS":
		return Exists
	case "CREATE":
		return Create
	case "DROP":
		return Drop
	case "INSERT":
		return Insert
	case "UPDATE":
		return Update
	case "DELETE":
		return Delete
	case "SET":
		return Set
	case "INTO":
		return Into
	case "VALUES":
		return Values
	case "BEGIN":
		return Begin
	case "COMMIT", "END":
		return Commit
	case "ROLLBACK":
		return Rollback
	case "TRANSACTION":
		return Transaction
	default:
		return Identifier
	}
}

// toUpper converts a string to uppercase without allocating for ASCII strings
func toUpper(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 'a' && s[i] <= 'z' {
			b := make([]byte, len(s))
			for j := 0; j < len(s); j++ {
				if s[j] >= 'a' && s[j] <= 'z' {
					b[j] = s[j] - 32
				} else {
					b[j] = s[j]
				}
			}
			return string(b)
		}
	}
	return s
}

func tokenize(sql string) []Token {
	lexer := NewLexer(sql)

	var tokens []Token

	for {
		token := lexer.NextToken()
		if token.Type == EOF {
			return append(tokens, token)
		}
		tokens = append(tokens, token)
	}
}
