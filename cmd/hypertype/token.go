package main

import "strings"

// Token is the classified identity of a keystroke: one of the fixed names below,
// "SHIFT+<char>" for a single uppercase letter, or the raw inserted text.
type Token string

const (
	TokenSpace     Token = "SPACE"
	TokenEnter     Token = "ENTER"
	TokenTab       Token = "TAB"
	TokenBackspace Token = "BACKSPACE"
	TokenDelete    Token = "DELETE"

	shiftPrefix = "SHIFT+"
)

// ClassifyText maps inserted text to its Token.
func ClassifyText(text string) Token {
	switch text {
	case " ":
		return TokenSpace
	case "\n":
		return TokenEnter
	case "\t":
		return TokenTab
	}
	if len(text) == 1 && text[0] >= 'A' && text[0] <= 'Z' {
		return Token(shiftPrefix + text)
	}
	return Token(text)
}

// IsSpecial reports whether the token draws from the special palette.
func (t Token) IsSpecial() bool {
	switch t {
	case TokenSpace, TokenEnter, TokenTab, TokenBackspace, TokenDelete:
		return true
	}
	return strings.HasPrefix(string(t), shiftPrefix)
}

// HasCornerBox reports whether inserting this token also expands corner brackets.
func (t Token) HasCornerBox() bool {
	return t != TokenEnter && t != TokenTab && t != TokenBackspace
}

// Direction is the horizontal drift of a floating glyph.
type Direction int

const (
	DirectionLeft Direction = iota
	DirectionRight
	DirectionMiddle
)

func (d Direction) String() string {
	switch d {
	case DirectionRight:
		return "right"
	case DirectionMiddle:
		return "middle"
	default:
		return "left"
	}
}

// DirectionFor picks the drift for a token's floating glyph.
func DirectionFor(t Token) Direction {
	switch t {
	case TokenEnter, TokenTab:
		return DirectionMiddle
	case TokenBackspace:
		return DirectionRight
	default:
		return DirectionLeft
	}
}

// SoundKind selects the sample the display surface plays.
type SoundKind string

const (
	SoundNormal SoundKind = "normal"
	SoundEnter  SoundKind = "enter"
)

func soundFor(t Token) SoundKind {
	if t == TokenEnter {
		return SoundEnter
	}
	return SoundNormal
}

func shakeFor(t Token) float64 {
	if t == TokenEnter || t == TokenTab {
		return shakeEnter
	}
	return shakeNormal
}
