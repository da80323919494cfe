package typemap

// AWS native type constants for the resource families the scanners emit.
const (
	AWSEC2Instance        = "AWS::EC2::Instance"
	AWSEC2Volume          = "AWS::EC2::Volume"
	AWSEC2Snapshot        = "AWS::EC2::Snapshot"
	AWSEC2AMI             = "AWS::EC2::AMI"
	AWSEC2VPC             = "AWS::EC2::VPC"
	AWSEC2Subnet          = "AWS::EC2::Subnet"
	AWSEC2SecurityGroup   = "AWS::EC2::SecurityGroup"
	AWSEC2NatGateway      = "AWS::EC2::NatGateway"
	AWSEC2EIP             = "AWS::EC2::EIP"
	AWSS3Bucket           = "AWS::S3::Bucket"
	AWSRDSInstance        = "AWS::RDS::DBInstance"
	AWSRDSCluster         = "AWS::RDS::DBCluster"
	AWSLambdaFunction     = "AWS::Lambda::Function"
	AWSDynamoDBTable      = "AWS::DynamoDB::Table"
	AWSECSCluster         = "AWS::ECS::Cluster"
	AWSECSService         = "AWS::ECS::Service"
	AWSEKSCluster         = "AWS::EKS::Cluster"
	AWSEKSNodegroup       = "AWS::EKS::Nodegroup"
	AWSELBV2LoadBalancer  = "AWS::ElasticLoadBalancingV2::LoadBalancer"
	AWSELBV2TargetGroup   = "AWS::ElasticLoadBalancingV2::TargetGroup"
	AWSElastiCacheCluster = "AWS::ElastiCache::CacheCluster"
	AWSRedshiftCluster    = "AWS::Redshift::Cluster"
	AWSECRRepository      = "AWS::ECR::Repository"
	AWSLogsLogGroup       = "AWS::Logs::LogGroup"
	AWSCloudWatchAlarm    = "AWS::CloudWatch::Alarm"
	AWSCloudTrailTrail    = "AWS::CloudTrail::Trail"
	AWSIAMRole            = "AWS::IAM::Role"
	AWSIAMUser            = "AWS::IAM::User"
	AWSRoute53HostedZone  = "AWS::Route53::HostedZone"
)

var awsToNeutral = map[string]string{
	AWSEC2Instance:        "aws_instance",
	AWSEC2Volume:          "aws_ebs_volume",
	AWSEC2Snapshot:        "aws_ebs_snapshot",
	AWSEC2AMI:             "aws_ami",
	AWSEC2VPC:             "aws_vpc",
	AWSEC2Subnet:          "aws_subnet",
	AWSEC2SecurityGroup:   "aws_security_group",
	AWSEC2NatGateway:      "aws_nat_gateway",
	AWSEC2EIP:             "aws_eip",
	AWSS3Bucket:           "aws_s3_bucket",
	AWSRDSInstance:        "aws_db_instance",
	AWSRDSCluster:         "aws_rds_cluster",
	AWSLambdaFunction:     "aws_lambda_function",
	AWSDynamoDBTable:      "aws_dynamodb_table",
	AWSECSCluster:         "aws_ecs_cluster",
	AWSECSService:         "aws_ecs_service",
	AWSEKSCluster:         "aws_eks_cluster",
	AWSEKSNodegroup:       "aws_eks_node_group",
	AWSELBV2LoadBalancer:  "aws_lb",
	AWSELBV2TargetGroup:   "aws_lb_target_group",
	AWSElastiCacheCluster: "aws_elasticache_cluster",
	AWSRedshiftCluster:    "aws_redshift_cluster",
	AWSECRRepository:      "aws_ecr_repository",
	AWSLogsLogGroup:       "aws_cloudwatch_log_group",
	AWSCloudWatchAlarm:    "aws_cloudwatch_metric_alarm",
	AWSCloudTrailTrail:    "aws_cloudtrail",
	AWSIAMRole:            "aws_iam_role",
	AWSIAMUser:            "aws_iam_user",
	AWSRoute53HostedZone:  "aws_route53_zone",
}

var neutralToAWS = invert(awsToNeutral)

// arnPrefixToNative keys on the "service:resourceType" prefix of an ARN
// (bare service name when the ARN has no resource type segment, as with S3).
var arnPrefixToNative = map[string]string{
	"ec2:instance":                      AWSEC2Instance,
	"ec2:volume":                        AWSEC2Volume,
	"ec2:snapshot":                      AWSEC2Snapshot,
	"ec2:image":                         AWSEC2AMI,
	"ec2:vpc":                           AWSEC2VPC,
	"ec2:subnet":                        AWSEC2Subnet,
	"ec2:security-group":                AWSEC2SecurityGroup,
	"ec2:natgateway":                    AWSEC2NatGateway,
	"ec2:elastic-ip":                    AWSEC2EIP,
	"s3":                                AWSS3Bucket,
	"rds:db":                            AWSRDSInstance,
	"rds:cluster":                       AWSRDSCluster,
	"lambda:function":                   AWSLambdaFunction,
	"dynamodb:table":                    AWSDynamoDBTable,
	"ecs:cluster":                       AWSECSCluster,
	"ecs:service":                       AWSECSService,
	"eks:cluster":                       AWSEKSCluster,
	"eks:nodegroup":                     AWSEKSNodegroup,
	"elasticloadbalancing:loadbalancer": AWSELBV2LoadBalancer,
	"elasticloadbalancing:targetgroup":  AWSELBV2TargetGroup,
	"elasticache:cluster":               AWSElastiCacheCluster,
	"redshift:cluster":                  AWSRedshiftCluster,
	"ecr:repository":                    AWSECRRepository,
	"logs:log-group":                    AWSLogsLogGroup,
	"cloudwatch:alarm":                  AWSCloudWatchAlarm,
	"cloudtrail:trail":                  AWSCloudTrailTrail,
	"iam:role":                          AWSIAMRole,
	"iam:user":                          AWSIAMUser,
	"route53:hostedzone":                AWSRoute53HostedZone,
}
