// Package ranking reads ranked song lists and turns raw titles into search queries.
//
// # Input Format
//
// A ranking file is UTF-8 text with one rank<TAB>title row per line:
//
//	Rank	Song
//	1	Love Story
//	2	Cardigan (feat. Bon Iver)
//
// Blank lines and lines starting with "Rank" are skipped. Any other line without a tab is a
// [shared.MalformedLineError]; the parser never drops a row silently.
//
// # Normalization
//
// [Normalize] strips featuring-artist markers (feat, feat., ft, ft., featuring) matched as whole
// words, drops parenthesised "(feat. ...)" groups and collapses whitespace.
// It is idempotent and leaves words that merely contain a marker ("Craft", "Left") untouched.
package ranking
