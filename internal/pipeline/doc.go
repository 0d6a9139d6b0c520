// Package pipeline turns one uploaded video into its derived artifacts.
//
// A Run marks the record processing, downloads the source into a private
// workspace, probes it, then fans out poster, storyboard, trailer, and
// canonical-copy subtasks through the task runner. The record only reaches
// completed when every subtask succeeded, and all artifact keys are written
// in the same update. Any failure leaves the record failed with its keys
// untouched. The workspace is removed on every exit path.
package pipeline
