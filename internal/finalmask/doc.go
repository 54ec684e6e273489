// Package finalmask creates the dated final mask folder for a new order by
// copying the dataprep template folder.
package finalmask
