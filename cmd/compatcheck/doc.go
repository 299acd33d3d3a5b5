// Package main provides the compatcheck command-line tool.
//
// compatcheck records what an emulator build promises for each machine
// type and checks that a newer build keeps those promises:
//
//	compatcheck collect --qemu ./qemu-system-x86_64 -o qemu-8.2.json.xz
//	compatcheck compare qemu-8.2.json.xz qemu-9.2.json.xz --archive runs.db
//	compatcheck show runs.db
//
// compare exits with status 1 when any machine type has an ERROR-level
// difference. Settings may also come from the environment:
// COMPATCHECK_QEMU, COMPATCHECK_QMP_SOCKET, COMPATCHECK_QMP_TIMEOUT,
// COMPATCHECK_TABLES, COMPATCHECK_ARCHIVE and COMPATCHECK_LOG_LEVEL.
//
// For the comparison rules, see the compat package.
package main
