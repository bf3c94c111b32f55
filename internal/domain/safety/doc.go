// Package safety scores mini-app code before it is published to the feed.
//
// The analyzer combines static rules over the three code parts with an
// optional preflight run of the app's script. Each rule that matches costs
// its penalty once; the score is 1 minus the sum of penalties, floored at 0.
// Apps at or above the feed's publish threshold go live automatically.
package safety
