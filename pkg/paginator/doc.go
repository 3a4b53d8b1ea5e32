// Package paginator downloads every page of an offset-paginated JSON
// collection and merges the records into one ordered result set.
//
// Example usage:
//
//	cfg := paginator.DefaultConfig("https://api.example.com/users")
//	cfg.MaxThreads = 10
//	p, err := paginator.New(cfg)
//	if err != nil {
//		return err
//	}
//	if err := p.DownloadAllPages(ctx); err != nil {
//		return err
//	}
//	records, _ := p.Results()
//
// A run:
//   - Logs in first when LoginURL, Username and Password are set
//   - Fetches page 1 synchronously to learn total count and page size
//   - Dispatches pages 2..N with at most MaxThreads fetches in flight
//   - Merges outcomes in one goroutine into page-indexed slots
//   - Fails on the first auth, network or parse error and discards partial data
//   - Optionally flattens every record into dotted-path keys
//
// Errors match ErrLoginFailed (*LoginError), ErrDataFetchFailed
// (*FetchError) and, for rejected tokens, ErrAuthenticationFailed.
package paginator
