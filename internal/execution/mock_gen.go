package execution

//go:generate mockgen -destination=mock_node_test.go -package=execution github.com/birdayz/edgepipe/enode Node
