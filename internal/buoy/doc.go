// Package buoy turns the NDBC realtime meteorological and solar reports for one
// buoy into a dense, 30-minute series of observations and derives the
// chopiness index shown on the dashboard.
//
// The stages run in order:
//
//	Normalize   rename date columns, build GMT timestamps, drop unused columns,
//	            inner-merge the two feeds, convert to US/Eastern
//	Fill        sentinel handling, forward/back fill, resample, quadratic
//	            interpolation of empty slots, zero fill of what remains
//	Chopiness   weighted rolling product of wave height, period and gust
package buoy
