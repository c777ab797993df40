// Package s3 stores grids in Amazon S3.
//
//	store, err := s3.New(ctx, "pdf-fits",
//	    s3.WithPrefix("grids/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	g, err := pinegrid.Load(ctx, store, "dy.pgrd.lz4")
//
// Reads are ranged GETs. Put sends one request with a CRC32C checksum;
// Create streams a multipart upload through the transfer manager. List
// follows continuation tokens.
package s3
