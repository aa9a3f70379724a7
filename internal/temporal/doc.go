// Package temporal provides the date, time and date/time literals that column
// values are compared against.
//
// Date, Time and DateTime are immutable value types with a total order. They
// are parsed from a strict grammar:
//
//	date:      YYYY-MM-DD
//	time:      HH:mm | HH:mm:ss | HH:mm:ss.f        (1 to 9 fractional digits)
//	date/time: date | dateTHH:mm | dateTHH:mm:ss | dateTHH:mm:ss.f
//
// Missing time components default to zero. String returns the canonical form
// (2014-05-24, 09:46:30.000000000, 2014-05-24T09:46:30.000000000), which Parse
// accepts and maps back to an equal value.
//
// A literal that does not match the grammar, or names an impossible field
// (month 13, February 30th, hour 24), yields a *ParseError.
package temporal
