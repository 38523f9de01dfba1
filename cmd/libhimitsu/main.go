// Command libhimitsu builds a C-shared library exposing Himitsu's control
// surface to embedders, mirroring the original Rust FFI's handle-based API.
// Go pointers may not cross the cgo boundary and be handed back later, so
// runtimes are tracked in a handle registry instead of Box::into_raw/
// from_raw/leak.
package main

/*
#include <stdlib.h>
#include <stdbool.h>
#include <stdint.h>
*/
import "C"

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
	"unsafe"

	himitsu "github.com/obelisk/himitsu/pkg"
)

// runtime bundles a running Dispatcher with its Control handle and the exit
// signal from Dispatcher.Run's goroutine.
type runtime struct {
	control *himitsu.Control
	done    chan struct{}
}

var (
	registryMu sync.Mutex
	registry   = map[uint64]*runtime{}
	nextHandle uint64
)

func register(r *runtime) uint64 {
	registryMu.Lock()
	defer registryMu.Unlock()
	nextHandle++
	h := nextHandle
	registry[h] = r
	return h
}

func lookup(handle uint64) *runtime {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry[handle]
}

func forget(handle uint64) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, handle)
}

func startRuntime(socketPath string, config *himitsu.Configuration, loader himitsu.ConfigLoader) (uint64, error) {
	handler := himitsu.NewHandler(config, loader)
	dispatcher, err := himitsu.NewDispatcher(socketPath, handler)
	if err != nil {
		return 0, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		dispatcher.Run()
	}()

	r := &runtime{control: himitsu.NewControl(dispatcher.Control()), done: done}
	return register(r), nil
}

//export himitsu_start
func himitsu_start(socketPath *C.char) C.uint64_t {
	fmt.Fprintln(os.Stderr, "Requested To Start Himitsu")
	path := C.GoString(socketPath)

	config, err := himitsu.NewDefaultConfiguration()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to build default configuration:", err)
		return 0
	}

	loader := func() (*himitsu.Configuration, error) { return himitsu.NewDefaultConfiguration() }

	handle, err := startRuntime(path, config, loader)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to start Himitsu:", err)
		return 0
	}
	return C.uint64_t(handle)
}

//export himitsu_start_with_url_and_key
func himitsu_start_with_url_and_key(socketPath, url, key *C.char) C.uint64_t {
	fmt.Fprintln(os.Stderr, "Requested To Start Himitsu")
	path := C.GoString(socketPath)
	urlStr := C.GoString(url)
	keyStr := C.GoString(key)

	config, err := himitsu.NewConfigurationFromURL(urlStr, keyStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to fetch configuration:", err)
		return 0
	}

	loader := func() (*himitsu.Configuration, error) {
		return himitsu.NewConfigurationFromURL(urlStr, keyStr)
	}

	handle, err := startRuntime(path, config, loader)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to start Himitsu:", err)
		return 0
	}
	return C.uint64_t(handle)
}

//export himitsu_stop
func himitsu_stop(handle C.uint64_t) C.bool {
	fmt.Fprintln(os.Stderr, "Attempting to stop Himitsu")
	r := lookup(uint64(handle))
	if r == nil {
		return false
	}
	r.control.Stop()
	forget(uint64(handle))
	return true
}

//export himitsu_configuration_update
func himitsu_configuration_update(handle C.uint64_t) C.bool {
	r := lookup(uint64(handle))
	if r == nil {
		return false
	}
	r.control.Update()
	return true
}

//export himitsu_silence_next_check
func himitsu_silence_next_check(handle C.uint64_t) C.bool {
	fmt.Fprintln(os.Stderr, "Silencing The Next Himitsu Check")
	r := lookup(uint64(handle))
	if r == nil {
		return false
	}
	r.control.SilenceOnce()
	return true
}

//export himitsu_silence_next_check_set
func himitsu_silence_next_check_set(handle C.uint64_t, durationSecs C.int) C.bool {
	fmt.Fprintln(os.Stderr, "Silencing The Next Set of Himitsu Checks")
	r := lookup(uint64(handle))
	if r == nil {
		return false
	}
	r.control.SilenceSet(time.Duration(durationSecs) * time.Second)
	return true
}

//export himitsu_get_found_secrets
func himitsu_get_found_secrets(handle C.uint64_t) *C.char {
	fmt.Fprintln(os.Stderr, "Fetching the last found secrets")
	r := lookup(uint64(handle))
	if r == nil {
		return nil
	}

	findings := r.control.GetFindings()
	encoded, err := json.Marshal(findings)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to fetch last found secrets:", err)
		return nil
	}
	return C.CString(string(encoded))
}

//export himitsu_clear_found_secrets
func himitsu_clear_found_secrets(handle C.uint64_t) {
	fmt.Fprintln(os.Stderr, "Clearing found secrets")
	r := lookup(uint64(handle))
	if r == nil {
		return
	}
	r.control.ClearFindings()
}

//export himitsu_free_string
func himitsu_free_string(s *C.char) {
	if s == nil {
		return
	}
	C.free(unsafe.Pointer(s))
}

func main() {}
