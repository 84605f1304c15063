// Package station exports the daily history tables of personal weather stations.
//
// A StationBrowser loads one dashboard page per (station, day) and returns its
// HTML once the history table is present. ExtractTables parses the tables with
// goquery, the Accumulator normalizes each day's rows into timestamped records,
// and Export writes one CSV file per station.
package station
