package trackers

import "errors"

// ErrMainAnnounceMissing is returned when the site enforces its own
// announce URL and the uploaded torrent does not carry it.
var ErrMainAnnounceMissing = errors.New("trackers: torrent does not contain the required announce URL")

// Dedupe turns raw announce and webseed URL lists into ordered unique sets.
// First-seen order wins; a URL that appears both as tracker and webseed is
// kept only as a tracker. When mainAnnounce is non-empty and enforced, it
// must appear among the torrent's trackers.
func Dedupe(announces, webseeds []string, mainAnnounce string, enforce bool) (trackerURLs, webseedURLs []string, err error) {
	trackerURLs = orderedUnique(announces, nil)

	if enforce && mainAnnounce != "" {
		found := false
		for _, url := range trackerURLs {
			if url == mainAnnounce {
				found = true
				break
			}
		}
		if !found {
			return nil, nil, ErrMainAnnounceMissing
		}
	}

	taken := make(map[string]struct{}, len(trackerURLs))
	for _, url := range trackerURLs {
		taken[url] = struct{}{}
	}
	webseedURLs = orderedUnique(webseeds, taken)

	return trackerURLs, webseedURLs, nil
}

// MergeDefaults builds the tracker list for a regenerated torrent file: the
// mandatory announce URL first, then the torrent's own trackers, then the
// site defaults, deduplicated in that order.
func MergeDefaults(mainAnnounce string, own []string, defaults *DefaultSet) []string {
	var all []string
	if mainAnnounce != "" {
		all = append(all, mainAnnounce)
	}
	all = append(all, own...)
	if defaults != nil {
		all = append(all, defaults.URLs()...)
	}
	return orderedUnique(all, nil)
}

func orderedUnique(in []string, exclude map[string]struct{}) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, url := range in {
		if url == "" {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		if _, skip := exclude[url]; skip {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, url)
	}
	return out
}
