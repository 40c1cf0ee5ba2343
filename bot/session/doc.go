// Package session keeps the per-user working set of the bot: the images a
// user has sent since the last clear and the keyboard choice they are
// expected to answer next. Nothing here is persisted; a restart starts every
// user from an empty session.
package session
