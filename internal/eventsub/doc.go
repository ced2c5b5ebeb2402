// Package eventsub authenticates and classifies Twitch EventSub webhook
// messages.
//
// A request moves through three one-way steps, each usable on its own:
//
//  1. Verifier.Authenticate checks the HMAC-SHA256 signature over
//     message id, timestamp and raw body. Failure yields ErrAuthentication
//     and the body is never parsed.
//  2. Classify parses the body once and routes it by the
//     Twitch-Eventsub-Message-Type header.
//  3. Decide turns the classification into the status code and body owed
//     to Twitch.
//
// No state is kept between requests.
package eventsub
