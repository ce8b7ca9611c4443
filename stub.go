package main

import (
	"lotusos/kernel/boot"
	"lotusos/kernel/kmain"
)

// bootInfo is populated by the platform layer before main is invoked.
var bootInfo *boot.Info

// main is the only Go symbol that is visible (exported) from the rt0
// initialization code. It works as a trampoline for calling the actual
// kernel entrypoint (kmain.Kmain) and is intentionally defined to prevent the
// Go compiler from optimizing away the kernel code as it is not aware of the
// presence of the rt0 code.
//
// A global variable is passed as an argument to Kmain to prevent the compiler
// from inlining the actual call and removing Kmain from the generated object
// file.
func main() {
	kmain.Kmain(bootInfo)
}
