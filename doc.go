/*Package canopy is a batch analytics pipeline for municipal tree
inventory data.

A canopy job reads a delimited tree inventory, runs a set of independent
aggregation statistics over it (densest address, most common species, and
configurable filtered counts), and persists one artifact per statistic.
Everything about a run -- input and output locations, filter values, the
top-K limit -- comes from a configuration document, so the same binary
serves any inventory dataset.

Canopy's runtime model consists of stateless statistic tasks controlled by
a central driver. Tasks can run in-process or be shipped to AWS Lambda,
with input data and artifacts living on the local filesystem or in S3.
*/
package canopy
