/*

Package base provides base data structures and functions for ampscore.

The base data structures and functions include:

* Random Generator

* Numeric Computing

*/
package base
