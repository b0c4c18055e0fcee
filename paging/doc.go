// Package paging drives segmented listings.
//
// A listing is fetched one segment at a time. Each segment carries a
// continuation marker; an empty marker ends the listing. A Lister is built
// from a fetch function (one round trip) and an items function (pure) and
// hands out Pagers, each of which walks one listing:
//
//	lister := paging.NewLister(fetchContainers, containerItems)
//	for c, err := range lister.Items(ctx, svc, opts) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(c.Name)
//	}
//
// Three consumption modes share one drive loop (Pager.NextSegment):
// Segments and Items are lazy iter.Seq2 sequences and Collect materializes
// every item. Segments are fetched strictly in order with no prefetch.
package paging
