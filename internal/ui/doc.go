// Package ui implements the interactive login screen using bubbletea's Elm architecture.
//
// The screen moves through four states:
//  1. [RequestingView] : a device code is being requested
//  2. [WaitingView] : the verification URL and user code are shown while polling
//  3. [SuccessView] : the session was saved
//  4. [FailedView] : the code expired, was refused, or the request failed
//
// The [Model] implements the standard Init/Update/View pattern, receiving messages via the Msg union type.
// Polling is driven by tea.Tick at the interval the server asked for, so the UI never blocks.
//
// The program renders to stderr; stdout stays reserved for the command's JSON result.
package ui
