// openfda is a data-pipeline harness for the openFDA bulk exports. It
// downloads the JSON export files listed in the download manifest, tracks
// their freshness via HTTP Last-Modified headers, and converts each JSON
// payload into a parquet file mirroring the remote directory structure.
//
// The pipeline is split into stages, each living in its own sub-package
// with a Main config struct and a cobra subcommand under cmd/:
//
// 1. download
//
//    Fetches the manifest from the openFDA endpoint and then each dataset
//    partition it lists. Fetches are conditional: a sidecar ".last-modified"
//    marker (or a bolt-backed marker store) records the Last-Modified header
//    observed at the last successful download, and a partition whose marker
//    is newer than the manifest's declared export date is skipped without
//    touching the network. Downloads go through a temp file and an atomic
//    rename, so a partial transfer never lands at the final path.
//
// 2. build
//
//    Converts every downloaded partition to parquet, mirroring the raw
//    directory layout under the brick path. Zip payloads are extracted to
//    a temp dir first. Outputs newer than their inputs are skipped.
//
// This root package holds the conversion engine shared by the build stage
// and the json2parquet subcommand: document shape resolution, table
// normalization, and the best-effort stringification of cells that have
// no primitive representation.
package openfda
