// Package logfile provides positioned buffered I/O over generation-numbered
// log files, plus the naming and discovery conventions used to lay them out
// on disk as "<gen>.log".
package logfile
