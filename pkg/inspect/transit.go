package inspect

import (
	"io"
	"sync"
)

// TransitTransparent relays bytes bidirectionally between the client and
// upstream halves until both directions have ended, each at its source's
// EOF or at an error (spec §4.4 steps 2
// and 3: Intercept and Bypass both reduce to this once their respective
// protocol-specific reader/writer wrapping is in place). Both directions
// run concurrently and unordered with respect to each other (spec §5
// "Ordering"); both goroutines are always waited on before returning so
// neither leaks past this call. The returned error is the client-to-upstream
// direction's error if it had one, otherwise the upstream-to-client one's.
func TransitTransparent(cltR io.Reader, cltW io.Writer, upsR io.Reader, upsW io.Writer) error {
	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := io.Copy(upsW, cltR)
		errs[0] = err
	}()
	go func() {
		defer wg.Done()
		_, err := io.Copy(cltW, upsR)
		errs[1] = err
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil && err != io.EOF {
			return err
		}
	}
	return nil
}

// RelayWithDetour relays the client half against the detour stream once
// the external inspector has agreed to DetourContinue. The original
// upstream connection the bridge dialed before detouring is not part of
// this relay: the DetourContext carries the resolved upstream address, and
// the external inspector is the party that dials and relays to the real
// upstream from there on, the same way the bridge itself relays
// client<->upstream in the non-detour branches. The bridge's own upstream
// half is the caller's to close once this returns — RelayWithDetour never
// touches it, only the detour stream is finish()ed on every exit path
// (spec §4.4 step 5, §5 "In-flight detour streams must be explicitly
// finish()ed").
func RelayWithDetour(cltR io.Reader, cltW io.Writer, detour DetourStream) error {
	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := io.Copy(detour, cltR)
		errs[0] = err
	}()
	go func() {
		defer wg.Done()
		_, err := io.Copy(cltW, detour)
		errs[1] = err
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil && err != io.EOF {
			return err
		}
	}
	return nil
}
