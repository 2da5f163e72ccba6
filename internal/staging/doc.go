// Package staging names and cleans the temporary files a sync pass creates:
// hidden partial outputs inside destination directories and extractor
// scratch files in the cache directory. Cleanup is only safe while the run
// lock is held.
package staging
