// SPDX-License-Identifier: MPL-2.0

// Package thermal reads and writes thermal thresholds through the platform
// API that lives inside the running service container.
//
// Every exchange is one Request/Response pair. ContainerTransport carries
// it by running a fixed dispatcher program (dispatcher.py) with the JSON
// request as its only argument and decoding the single JSON line it
// prints. User input never becomes program text.
//
// Client adds the local rules on top: the inclusive threshold Range and
// the ordering rule that a thermal's high threshold must stay strictly
// below its high-critical threshold.
package thermal
