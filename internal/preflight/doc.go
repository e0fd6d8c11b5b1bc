// Package preflight provides readiness checks for the filesystem paths and
// services the dataset pipeline depends on.
//
// These checks run in two contexts:
//   - The batch preprocessor calls EnsureFreeSpace before materializing so a
//     nearly full disk fails fast instead of leaving a truncated shard.
//   - The CLI "erc doctor" command uses RunAll to display corpus layout,
//     directory permissions, tokenizer vocabulary and encoder reachability.
//
// Each check is gated by its config -- unset paths and the local encoder are
// skipped.
package preflight
