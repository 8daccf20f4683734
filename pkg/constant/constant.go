package constant

// Files of the Shelf dataset root
const CalibrationFile string = "calibration_shelf.json"
const ProjectionFile = "proj.json"
const GroundTruthFile = "actorsGT.mat"
const Pose2DFile = "pred_shelf_maskrcnn_hrnet_coco.pkl"

// Image layout below the dataset root
const CameraDirPrefix = "Camera"
const ImageNameFormat = "img_%06d.png"

// Report outputs
const ReportFile = "report.yaml"
const ChartFile = "bone_pcp.png"
const MATFile = "report.mat"
