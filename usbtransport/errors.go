/* carplaydongled - host-side protocol engine for CarPlay/Android Auto USB dongles
 *
 * Transport-level error values.
 */

package usbtransport

import "errors"

var (
	// ErrNoConfig is returned by Open when the device's active
	// configuration cannot be read.
	ErrNoConfig = errors.New("usbtransport: device has no active configuration")

	// ErrNoInEndpoint is returned by Open when the claimed interface has
	// no bulk IN endpoint.
	ErrNoInEndpoint = errors.New("usbtransport: no IN endpoint found")

	// ErrNoOutEndpoint is returned by Open when the claimed interface has
	// no bulk OUT endpoint.
	ErrNoOutEndpoint = errors.New("usbtransport: no OUT endpoint found")

	// ErrTimeout is returned by ReadExact when no data arrived within the
	// requested deadline. It is not a fatal error: callers use it as a
	// shutdown-polling checkpoint.
	ErrTimeout = errors.New("usbtransport: read timed out")

	// ErrClosed is returned by any operation attempted after Dispose.
	ErrClosed = errors.New("usbtransport: transport disposed")
)
